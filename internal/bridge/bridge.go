package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/graywater/judo2mqtt/internal/history"
	"github.com/graywater/judo2mqtt/internal/infrastructure/config"
	"github.com/graywater/judo2mqtt/internal/infrastructure/influxdb"
	"github.com/graywater/judo2mqtt/internal/infrastructure/mqtt"
	"github.com/graywater/judo2mqtt/internal/judo"
)

// MQTTClient is the broker surface the bridge needs.
// Satisfied by *mqtt.Client; tests substitute a mock.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Logger is the logging interface the bridge accepts.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// payload is the JSON body of every status and event message.
type payload struct {
	TS  int64  `json:"ts"`
	Val string `json:"val"`
}

// Bridge connects the appliance session to the MQTT broker.
//
// It owns the poll loop and the topic surface: connection state on the
// connected topic, status values under status/, resolved events under
// event/. Everything is published retained so late subscribers see the
// current state immediately.
//
// Inbound set/ and cmd/ topics are subscribed and acknowledged in the
// log only; the appliance API offers no safe write path.
type Bridge struct {
	cfg     *config.Config
	mqtt    MQTTClient
	session *judo.Session
	topics  mqtt.Topics
	qos     byte

	scheduler *judo.Scheduler

	// influx and archive are optional history sinks; nil when disabled.
	influx  *influxdb.Client
	archive *history.Store

	logger Logger
}

// Options holds dependencies for creating a Bridge.
type Options struct {
	Config  *config.Config
	MQTT    MQTTClient
	Session *judo.Session

	// Influx mirrors status values and events into InfluxDB (optional).
	Influx *influxdb.Client

	// Archive persists events into the local SQLite archive (optional).
	Archive *history.Store

	Logger Logger
}

// New wires the poll pipeline: poller, scanner, scheduler, and the
// publish callbacks that turn appliance data into MQTT messages.
//
// Returns:
//   - *Bridge: Ready bridge; call Start to begin
//   - error: If a required dependency is missing
func New(opts Options) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bridge: config is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("bridge: mqtt client is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("bridge: session is required")
	}

	b := &Bridge{
		cfg:     opts.Config,
		mqtt:    opts.MQTT,
		session: opts.Session,
		topics:  mqtt.Topics{Prefix: opts.Config.Instance},
		qos:     byte(opts.Config.MQTT.QoS),
		influx:  opts.Influx,
		archive: opts.Archive,
		logger:  opts.Logger,
	}

	poller, err := judo.NewPoller(opts.Session, b.publishStatus, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	scanner, err := judo.NewScanner(judo.ScannerConfig{
		Session:              opts.Session,
		Poller:               poller,
		Handler:              b.publishEvent,
		StatusCycleThreshold: opts.Config.Polling.StatusCycleThreshold,
		AutoReconnect:        opts.Config.Polling.AutoReconnect,
		Logger:               opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	b.scheduler, err = judo.NewScheduler(opts.Session, scanner, opts.Config.PollInterval(), opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	return b, nil
}

// Start brings the bridge online: connection state published, inbound
// topics subscribed, initial login attempted, poll loop running.
//
// A failed initial login is logged, not fatal - the scheduler retries
// on every tick until the appliance appears.
func (b *Bridge) Start(ctx context.Context) error {
	b.session.SetOnStateChange(b.handleSessionState)
	b.publishConnectionState()

	if err := b.mqtt.Subscribe(b.topics.SetWildcard(), b.qos, b.handleInbound); err != nil {
		return fmt.Errorf("bridge: subscribing %s: %w", b.topics.SetWildcard(), err)
	}
	if err := b.mqtt.Subscribe(b.topics.CmdWildcard(), b.qos, b.handleInbound); err != nil {
		return fmt.Errorf("bridge: subscribing %s: %w", b.topics.CmdWildcard(), err)
	}

	if err := b.session.Login(ctx); err != nil {
		b.logWarn("initial login failed, will retry on poll ticks", "error", err)
	} else if b.archive != nil {
		b.logArchiveTail(ctx)
	}

	b.scheduler.Start(ctx)
	b.logInfo("bridge started",
		"instance", b.cfg.Instance,
		"devices", b.session.Registry().Len(),
	)
	return nil
}

// Stop halts the poll loop and marks the bridge offline on the broker.
func (b *Bridge) Stop() {
	b.scheduler.Stop()

	if err := b.mqtt.Publish(b.topics.Connected(), []byte(mqtt.ConnectionUnknown), b.qos, true); err != nil {
		b.logWarn("publishing offline state failed", "error", err)
	}

	b.logInfo("bridge stopped")
}

// OnBrokerConnect re-publishes the connection state after an MQTT
// (re)connect; wire it to mqtt.Client.SetOnConnect. The LWT left "0"
// on the topic, and retained state messages survive broker-side, but
// the connected value must reflect the session again.
func (b *Bridge) OnBrokerConnect() {
	b.publishConnectionState()
}

// logArchiveTail reports each device's most recent archived event, so a
// restart's logs show where the archive left off before the first scan.
func (b *Bridge) logArchiveTail(ctx context.Context) {
	for _, d := range b.session.Registry().Devices() {
		records, err := b.archive.Recent(ctx, d.SerialNumber, 1)
		if err != nil {
			b.logWarn("reading event archive failed", "serial", d.SerialNumber, "error", err)
			continue
		}
		if len(records) == 0 {
			b.logDebug("event archive empty", "serial", d.SerialNumber)
			continue
		}
		b.logInfo("event archive tail",
			"serial", d.SerialNumber,
			"code", records[0].Code,
			"occurred_at", records[0].OccurredAt,
		)
	}
}

// handleSessionState publishes the connection value on session transitions.
func (b *Bridge) handleSessionState(judo.State) {
	b.publishConnectionState()
}

// publishConnectionState maps session state onto the connected topic:
// "1" while the broker link is up but no appliance session exists,
// "2" once the appliance session is established.
func (b *Bridge) publishConnectionState() {
	value := mqtt.ConnectionConnecting
	if b.session.LoggedIn() {
		value = mqtt.ConnectionConnected
	}

	if err := b.mqtt.Publish(b.topics.Connected(), []byte(value), b.qos, true); err != nil {
		b.logWarn("publishing connection state failed", "value", value, "error", err)
	}
}

// handleInbound logs and drops writes arriving on set/ and cmd/ topics.
func (b *Bridge) handleInbound(topic string, message []byte) error {
	b.logWarn("inbound command ignored: appliance API is read-only",
		"topic", topic,
		"payload", string(message),
	)
	return nil
}

// publishEvent emits one resolved event, retained, keyed by model and
// code. The timestamp is the appliance's own event clock (epoch
// seconds): the MQTT payload passes it through unmodified, the history
// sinks convert it to a point in time.
func (b *Bridge) publishEvent(d *judo.Device, ev judo.Event, text string) {
	body, err := json.Marshal(payload{TS: ev.Timestamp, Val: text})
	if err != nil {
		b.logError("encoding event payload", "error", err)
		return
	}

	topic := b.topics.Event(string(d.Model), ev.Code)
	if err := b.mqtt.Publish(topic, body, b.qos, true); err != nil {
		b.logError("publishing event failed", "topic", topic, "error", err)
	}

	if b.influx != nil {
		b.influx.WriteEvent(d.SerialNumber, string(d.Model), ev.Code, text, time.Unix(ev.Timestamp, 0))
	}
	if b.archive != nil {
		rec := history.Record{
			SerialNumber: d.SerialNumber,
			Model:        string(d.Model),
			Code:         ev.Code,
			OccurredAt:   time.Unix(ev.Timestamp, 0),
			Raw:          ev.Raw,
			Text:         text,
		}
		if err := b.archive.Insert(context.Background(), rec); err != nil {
			b.logWarn("archiving event failed", "error", err)
		}
	}
}

// publishStatus emits one status value, retained, stamped with the
// bridge's wall clock in epoch milliseconds.
func (b *Bridge) publishStatus(d *judo.Device, command, value string) {
	body, err := json.Marshal(payload{TS: time.Now().UnixMilli(), Val: value})
	if err != nil {
		b.logError("encoding status payload", "error", err)
		return
	}

	topic := b.topics.Status(string(d.Model), command)
	if err := b.mqtt.Publish(topic, body, b.qos, true); err != nil {
		b.logError("publishing status failed", "topic", topic, "error", err)
	}

	if b.influx != nil {
		b.influx.WriteStatus(d.SerialNumber, string(d.Model), command, value)
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, args...)
	}
}
