// Package utils holds input validation shared by the transports.
package utils
