//go:build windows

package bridge

import "syscall"

// CREATE_NO_WINDOW, keeps the provider from flashing a console.
const createNoWindow = 0x08000000

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
