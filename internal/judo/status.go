package judo

import (
	"context"
	"fmt"
)

// StatusCommand addresses one read-only status query on the appliance.
type StatusCommand struct {
	Group     string
	Command   string
	MsgNumber int
}

// statusCommands maps each unit type to its status sweep, in publish
// order. The command name doubles as the last topic level, so the
// appliance spelling (spaces included) is kept verbatim.
//
// The i-dos exposes no readable status registers; its sweep is empty
// and the unit surfaces through events only.
var statusCommands = map[Model][]StatusCommand{
	ModelISoftPlus: {
		{Group: "version", Command: "devcomm version", MsgNumber: 1},
		{Group: "version", Command: "electrical control name", MsgNumber: 1},
		{Group: "version", Command: "software version", MsgNumber: 1},
		{Group: "version", Command: "hardware version", MsgNumber: 1},
		{Group: "contract", Command: "init date", MsgNumber: 1},
		{Group: "contract", Command: "service date", MsgNumber: 1},
		{Group: "consumption", Command: "water current", MsgNumber: 1},
		{Group: "consumption", Command: "water daily", MsgNumber: 1},
		{Group: "consumption", Command: "water monthly", MsgNumber: 1},
		{Group: "consumption", Command: "water yearly", MsgNumber: 1},
		{Group: "consumption", Command: "water total", MsgNumber: 1},
		{Group: "consumption", Command: "water average", MsgNumber: 1},
		{Group: "consumption", Command: "actual abstraction time", MsgNumber: 1},
		{Group: "consumption", Command: "salt quantity", MsgNumber: 1},
		{Group: "consumption", Command: "salt range", MsgNumber: 1},
		{Group: "settings", Command: "residual hardness", MsgNumber: 1},
		{Group: "settings", Command: "natural hardness", MsgNumber: 1},
		{Group: "waterstop", Command: "standby", MsgNumber: 1},
		{Group: "waterstop", Command: "valve", MsgNumber: 1},
		{Group: "waterstop", Command: "abstraction time", MsgNumber: 1},
		{Group: "waterstop", Command: "flow rate", MsgNumber: 1},
		{Group: "waterstop", Command: "quantity", MsgNumber: 1},
		{Group: "waterstop", Command: "vacation", MsgNumber: 1},
	},
	ModelIDos: {},
}

// StatusCommandsFor returns the status sweep for a unit type, in
// publish order. Unknown models get an empty sweep.
func StatusCommandsFor(model Model) []StatusCommand {
	return statusCommands[model]
}

// StatusHandler receives the value of one successful status query.
type StatusHandler func(d *Device, command string, value string)

// Poller runs the status sweep: every status command of every
// registered device, best-effort. A failed command is logged and the
// sweep moves on; one bad register never hides the rest.
type Poller struct {
	session *Session
	handler StatusHandler
	logger  Logger
}

// NewPoller creates a poller.
//
// Returns:
//   - *Poller: Ready poller
//   - error: If session or handler is missing
func NewPoller(session *Session, handler StatusHandler, logger Logger) (*Poller, error) {
	if session == nil {
		return nil, fmt.Errorf("judo: poller requires a session")
	}
	if handler == nil {
		return nil, fmt.Errorf("judo: poller requires a status handler")
	}
	return &Poller{session: session, handler: handler, logger: logger}, nil
}

// Sweep queries every status command of every registered device, in
// registry order then declared command order. Failures are contained
// per command; a failed connect skips that device's commands.
func (p *Poller) Sweep(ctx context.Context) {
	for _, d := range p.session.Registry().Devices() {
		if err := p.sweepDevice(ctx, d); err != nil {
			p.logError("status sweep failed", "serial", d.SerialNumber, "error", err)
		}
	}
}

// sweepDevice runs one device's full command table.
func (p *Poller) sweepDevice(ctx context.Context, d *Device) error {
	commands := StatusCommandsFor(d.Model)
	if len(commands) == 0 {
		return nil
	}

	if !p.session.IsActive(d) {
		if err := p.session.ConnectDevice(ctx, d); err != nil {
			return err
		}
	}

	for _, cmd := range commands {
		resp, err := p.session.Do(ctx, cmd.Group, cmd.Command, cmd.MsgNumber, nil)
		if err != nil {
			p.logError("status query failed",
				"serial", d.SerialNumber,
				"group", cmd.Group,
				"command", cmd.Command,
				"error", err,
			)
			continue
		}
		if !resp.OK() {
			p.logError("status query rejected",
				"serial", d.SerialNumber,
				"group", cmd.Group,
				"command", cmd.Command,
				"data", resp.DataString(),
			)
			continue
		}
		p.handler(d, cmd.Command, resp.DataString())
	}
	return nil
}

func (p *Poller) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
