// Package testutil provides in-memory edge routers and helpers shared by
// edgecheck package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Neighbor is one CDP neighbor advertised by a FakeDevice.
type Neighbor struct {
	DeviceID     string
	Address      string
	Capabilities string
}

// FakeDevice is a simulated IOS router. Show commands answer from Outputs,
// except "show ip access-lists" and "show cdp neighbors detail", which are
// rendered from ACLs and Neighbors. Configure applies standard ACL entries.
type FakeDevice struct {
	Address string
	Outputs map[string]string
	// Neighbors are advertised over CDP.
	Neighbors []Neighbor
	// RunErrors fails individual commands.
	RunErrors map[string]error
	// ConfigureErr fails every push.
	ConfigureErr error
	// IgnorePushes accepts pushes without applying them.
	IgnorePushes bool
	// PanicOn panics when the named command runs.
	PanicOn string

	mu       sync.Mutex
	acls     map[string][]string
	aclOrder []string
	pushes   [][]string
	runs     []string
	closes   int
}

// NewFakeDevice creates a device with no configuration.
func NewFakeDevice(address string) *FakeDevice {
	return &FakeDevice{
		Address: address,
		Outputs: make(map[string]string),
		acls:    make(map[string][]string),
	}
}

// WithACL seeds a standard ACL.
func (d *FakeDevice) WithACL(name string, hosts ...string) *FakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addACL(name)
	d.acls[name] = append(d.acls[name], hosts...)
	return d
}

// WithNeighbor adds a CDP neighbor.
func (d *FakeDevice) WithNeighbor(id, address, capabilities string) *FakeDevice {
	d.Neighbors = append(d.Neighbors, Neighbor{DeviceID: id, Address: address, Capabilities: capabilities})
	return d
}

func (d *FakeDevice) addACL(name string) {
	if _, ok := d.acls[name]; !ok {
		d.acls[name] = nil
		d.aclOrder = append(d.aclOrder, name)
	}
}

// ACL returns the hosts currently permitted by the named ACL.
func (d *FakeDevice) ACL(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.acls[name]...)
}

// Pushes returns every configuration push received.
func (d *FakeDevice) Pushes() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]string(nil), d.pushes...)
}

// Runs returns every command executed.
func (d *FakeDevice) Runs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.runs...)
}

// Closes returns how many sessions to this device were closed.
func (d *FakeDevice) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *FakeDevice) run(command string) (string, error) {
	d.mu.Lock()
	d.runs = append(d.runs, command)
	d.mu.Unlock()

	if d.PanicOn != "" && command == d.PanicOn {
		panic(fmt.Sprintf("fake device %s: %s", d.Address, command))
	}
	if err := d.RunErrors[command]; err != nil {
		return "", err
	}
	switch command {
	case "show ip access-lists":
		return d.renderACLs(), nil
	case "show cdp neighbors detail":
		return d.renderCDP(), nil
	}
	return d.Outputs[command], nil
}

func (d *FakeDevice) configure(lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushes = append(d.pushes, append([]string(nil), lines...))
	if d.ConfigureErr != nil {
		return d.ConfigureErr
	}
	if d.IgnorePushes {
		return nil
	}
	current := ""
	for _, line := range lines {
		fields := strings.Fields(line)
		switch {
		case len(fields) == 4 && fields[0] == "ip" && fields[1] == "access-list" && fields[2] == "standard":
			current = fields[3]
			d.addACL(current)
		case len(fields) == 3 && fields[0] == "permit" && fields[1] == "host" && current != "":
			if !contains(d.acls[current], fields[2]) {
				d.acls[current] = append(d.acls[current], fields[2])
			}
		default:
			return fmt.Errorf("%% Invalid input detected: %q", line)
		}
	}
	return nil
}

func (d *FakeDevice) renderACLs() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	for _, name := range d.aclOrder {
		fmt.Fprintf(&b, "Standard IP access list %s\n", name)
		for i, h := range d.acls[name] {
			fmt.Fprintf(&b, "    %d permit %s\n", (i+1)*10, h)
		}
	}
	return b.String()
}

func (d *FakeDevice) renderCDP() string {
	var b strings.Builder
	for _, n := range d.Neighbors {
		b.WriteString("-------------------------\n")
		fmt.Fprintf(&b, "Device ID: %s\n", n.DeviceID)
		b.WriteString("Entry address(es):\n")
		fmt.Fprintf(&b, "  IP address: %s\n", n.Address)
		fmt.Fprintf(&b, "Platform: cisco ISR4331,  Capabilities: %s\n", n.Capabilities)
		b.WriteString("Interface: GigabitEthernet0/0/1,  Port ID (outgoing port): GigabitEthernet0/0/0\n\n")
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fakeSession is one session to a FakeDevice.
type fakeSession struct {
	dev *FakeDevice
}

func (s *fakeSession) Run(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.dev.run(command)
}

func (s *fakeSession) Configure(ctx context.Context, lines []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dev.configure(lines)
}

func (s *fakeSession) Close() error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.closes++
	return nil
}

// FakeDialer dials FakeDevices by address. Addresses with an entry in Errors
// fail to dial with that error; unknown addresses are unreachable.
type FakeDialer struct {
	mu      sync.Mutex
	devices map[string]*FakeDevice
	errors  map[string]error
	dials   map[string]int
}

// NewFakeDialer creates a dialer for devs.
func NewFakeDialer(devs ...*FakeDevice) *FakeDialer {
	d := &FakeDialer{
		devices: make(map[string]*FakeDevice),
		errors:  make(map[string]error),
		dials:   make(map[string]int),
	}
	for _, dev := range devs {
		d.devices[dev.Address] = dev
	}
	return d
}

// Fail makes dials to address return err.
func (d *FakeDialer) Fail(address string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors[address] = err
}

// Dials returns how many times address was dialed.
func (d *FakeDialer) Dials(address string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[address]
}

func (d *FakeDialer) Dial(ctx context.Context, address string, _ session.Credentials) (session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[address]++
	if err := d.errors[address]; err != nil {
		return nil, err
	}
	dev, ok := d.devices[address]
	if !ok {
		return nil, fmt.Errorf("dial %s: connection refused: %w", address, util.ErrUnreachable)
	}
	return &fakeSession{dev: dev}, nil
}
