package profile

import (
	"github.com/edgecheck-network/edgecheck/pkg/facts"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Classify labels the LAN and WAN interfaces of a device.
//
// Excluded interfaces are skipped. An interface whose name is one of the WAN
// designators is the WAN interface; otherwise an interface named after the
// LAN designator, or addressed in private IP space, is the LAN interface.
// The first match wins for each role. Either return value is empty when no
// interface qualifies; callers treat that as missing information, not an error.
func Classify(ifaces []facts.InterfaceRecord, caps Capabilities) (lan, wan string) {
	excluded := make(map[string]bool, len(caps.Excluded))
	for _, name := range caps.Excluded {
		excluded[name] = true
	}
	wanNames := make(map[string]bool, len(caps.WANDesignators))
	for _, name := range caps.WANDesignators {
		wanNames[name] = true
	}

	for _, intf := range ifaces {
		if excluded[intf.Name] {
			continue
		}
		if wanNames[intf.Name] {
			if wan == "" {
				wan = intf.Name
			}
			continue
		}
		if lan != "" {
			continue
		}
		if intf.Name == caps.LANDesignator || (intf.HasAddress() && util.IsPrivateIP(intf.IPAddress)) {
			lan = intf.Name
		}
	}
	return lan, wan
}

// Resolve classifies f's interfaces into p's LAN and WAN roles.
func (p *Profile) Resolve(f *facts.Facts, caps Capabilities) {
	p.LAN, p.WAN = Classify(f.Interfaces, caps)
}
