package container

import "github.com/opendaq/daqcore/coreevent"

func addedEvent(item Item) coreevent.Args {
	return coreevent.Args{
		ID:     coreevent.ComponentAdded,
		Params: map[string]interface{}{"LocalId": item.LocalID()},
	}
}

func removedEvent(item Item) coreevent.Args {
	return coreevent.Args{
		ID:     coreevent.ComponentRemoved,
		Params: map[string]interface{}{"LocalId": item.LocalID()},
	}
}
