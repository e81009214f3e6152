// Package tools runs external programs on behalf of the kiosk host.
package tools
