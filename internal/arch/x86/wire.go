package x86

import (
	"peachkernel/internal/config"
	"peachkernel/internal/console"
	"peachkernel/internal/idt"
	"peachkernel/internal/keyboard"
	"peachkernel/internal/paging"
	"peachkernel/internal/task"
)

// Wire installs this package's real hardware implementations behind every
// overridable hook the rest of the kernel exposes for host testability.
// cmd/kernel calls this once, early in boot, before Init/InitGDT.
func Wire() {
	paging.LoadDirectory = LoadDirectory
	idt.Load = func(base uintptr, limit uint16) { lidt(base, limit) }
	idt.OutB = OutB
	console.OutB = OutB
	keyboard.InB = InB
	keyboard.OutB = OutB
	task.SetReturnToUserMode(ReturnToUserMode)
	task.SetRestoreUserDataSegment(func() {
		ReloadUserDataSegments(config.UserDataSelector | config.RPLUser)
	})
}
