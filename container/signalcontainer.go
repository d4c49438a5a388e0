package container

import (
	"github.com/opendaq/daqcore/component"
	"github.com/opendaq/daqcore/coretypes"
)

// SignalContainerFolders names the built-in typed folders every signal
// container owns (design §4.D): Sig/FB always present, the rest added by
// the subclass that actually needs them (a plain function block has no
// Dev/IO/Srv/Synchronization folders; a device has all of them).
type SignalContainerFolders struct {
	Sig             *Folder
	FB              *Folder
	Dev             *Folder
	IO              *Folder
	Srv             *Folder
	Synchronization *Folder
}

// SignalContainer is embedded by device.Device and device.FunctionBlock. It
// owns the Sig/FB folders (and, for devices, Dev/IO/Srv/Synchronization)
// and forwards begin/endUpdate, enable/disableCoreEventTrigger, and
// operation-mode changes to every child folder (design §4.D).
type SignalContainer struct {
	*component.Component
	Folders SignalContainerFolders
}

// NewSignalContainer builds a SignalContainer owning a Sig and FB folder
// at minimum; the Dev/IO/Srv/Synchronization folders a device additionally
// needs are assigned into Folders by the caller (device.New).
func NewSignalContainer(comp *component.Component, sigIID, fbIID coretypes.IID, makeSubfolder func(localID string, elementType coretypes.IID) *Folder) *SignalContainer {
	return &SignalContainer{
		Component: comp,
		Folders: SignalContainerFolders{
			Sig: makeSubfolder("Sig", sigIID),
			FB:  makeSubfolder("FB", fbIID),
		},
	}
}

func (sc *SignalContainer) allFolders() []*Folder {
	out := []*Folder{sc.Folders.Sig, sc.Folders.FB}
	for _, f := range []*Folder{sc.Folders.Dev, sc.Folders.IO, sc.Folders.Srv, sc.Folders.Synchronization} {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// BeginUpdate forwards to the container's own property object and to every
// child folder's property object.
func (sc *SignalContainer) BeginUpdate() {
	sc.Properties.BeginUpdate()
	for _, f := range sc.allFolders() {
		f.Properties.BeginUpdate()
	}
}

// EndUpdate is BeginUpdate's counterpart.
func (sc *SignalContainer) EndUpdate() {
	for _, f := range sc.allFolders() {
		_ = f.Properties.EndUpdate()
	}
	_ = sc.Properties.EndUpdate()
}

func (sc *SignalContainer) childComponents() []*component.Component {
	out := make([]*component.Component, 0, len(sc.allFolders()))
	for _, f := range sc.allFolders() {
		out = append(out, f.Component)
	}
	return out
}

// EnableCoreEventTrigger re-enables events on this container and every
// child folder.
func (sc *SignalContainer) EnableCoreEventTrigger() {
	sc.Component.EnableCoreEventTrigger(sc.childComponents)
}

// DisableCoreEventTrigger disables events on this container and every
// child folder.
func (sc *SignalContainer) DisableCoreEventTrigger() {
	sc.Component.DisableCoreEventTrigger(sc.childComponents)
}

// SetOperationMode records mode on this container and forwards it to every
// child folder, the same way BeginUpdate is forwarded (design §4.D).
func (sc *SignalContainer) SetOperationMode(mode component.OperationMode) error {
	if err := sc.Component.SetOperationMode(mode); err != nil {
		return err
	}
	for _, f := range sc.allFolders() {
		if err := f.Component.SetOperationMode(mode); err != nil {
			return err
		}
	}
	return nil
}

// GetItems returns the visible items across Sig and FB folders (design
// §4.D's container-level getItems convenience); callers wanting a single
// folder use Folders.Sig/FB/... directly.
func (sc *SignalContainer) GetItems(filter SearchFilter) []Item {
	var out []Item
	out = append(out, sc.Folders.Sig.GetItems(filter)...)
	out = append(out, sc.Folders.FB.GetItems(filter)...)
	return out
}
