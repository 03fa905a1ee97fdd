package platform

import (
	"os"

	"golang.org/x/sys/windows"
)

var (
	kernel32         = windows.NewLazySystemDLL("kernel32.dll")
	procAllocConsole = kernel32.NewProc("AllocConsole")
)

// MessageBox shows an error dialog and blocks until it is dismissed.
func MessageBox(text string) error {
	t, err := windows.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	c, err := windows.UTF16PtrFromString(Caption)
	if err != nil {
		return err
	}
	_, err = windows.MessageBox(0, t, c, windows.MB_ICONERROR|windows.MB_OK)
	return err
}

// OpenConsole attaches a console window to the process and points stderr at it.
func OpenConsole() error {
	if r, _, err := procAllocConsole.Call(); r == 0 {
		return err
	}
	f, err := os.OpenFile("CONOUT$", os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	os.Stderr = f
	return nil
}
