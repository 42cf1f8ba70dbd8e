//go:build !unix

package fsx

// rename across volumes on other platforms is handled by the OS or fails outright
func isEXDEV(err error) bool {
	return false
}
