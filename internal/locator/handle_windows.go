package locator

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// With FROM_ADDRESS the module name argument is any address inside the module.
var procGetModuleHandleExW = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetModuleHandleExW")

type windowsModules struct{}

func (windowsModules) ModuleFromAddress(addr Address) (Handle, error) {
	var h windows.Handle
	// UNCHANGED_REFCOUNT: safe as long as no other thread frees the module meanwhile.
	flags := uintptr(windows.GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS | windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT)
	r, _, err := procGetModuleHandleExW.Call(flags, uintptr(addr), uintptr(unsafe.Pointer(&h)))
	if r == 0 {
		return 0, err
	}
	return Handle(h), nil
}

func (windowsModules) ModuleFileName(h Handle) (string, error) {
	buf := make([]uint16, windows.MAX_LONG_PATH)
	n, err := windows.GetModuleFileName(windows.Handle(h), &buf[0], uint32(len(buf)))
	if err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:n]), nil
}
