//go:build !windows

package bridge

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
