package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/gatealloc/core/events"
	"github.com/kilianp07/gatealloc/core/model"
	"github.com/kilianp07/gatealloc/core/monitoring"
	coremqtt "github.com/kilianp07/gatealloc/core/mqtt"
	"github.com/kilianp07/gatealloc/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "gates"
	}
	if c.ClientID == "" {
		c.ClientID = "gatealloc-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

func (c Config) Validate() error {
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("qos %q must be 0, 1 or 2", k)
		}
	}
	if c.LWTQoS > 2 {
		return fmt.Errorf("lwt_qos must be 0, 1 or 2")
	}
	if c.Enabled() && c.UseTLS && c.TLSConfig == nil &&
		(c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

// ReportTopic is where operations publish disruption reports.
func (c Config) ReportTopic() string { return c.TopicPrefix + "/report" }

// AppliedTopic is the feed topic for one disruption type.
func (c Config) AppliedTopic(t model.DisruptionType) string {
	return fmt.Sprintf("%s/applied/%s", c.TopicPrefix, strings.ToLower(t.String()))
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes the applied-disruption feed and, when an Ingestor is
// given, forwards disruption reports to it.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	ingest  coremqtt.Ingestor
	logger  logger.Logger
	backoff time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker. The report subscription is
// (re)established on every connect.
func NewPahoClient(cfg Config, ingest coremqtt.Ingestor) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		ingest:  ingest,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if pc.ingest == nil {
			return
		}
		if token := c.Subscribe(cfg.ReportTopic(), pc.qos("report"), pc.onReport); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", cfg.ReportTopic(), token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s has no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qos(kind string) byte {
	if q, ok := p.cfg.QoS[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onReport(_ paho.Client, msg paho.Message) {
	var ev model.DisruptionEvent
	if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
		p.logger.Warnf("drop report on %s: %v", msg.Topic(), err)
		return
	}
	if err := ev.Validate(); err != nil {
		p.logger.Warnf("drop report on %s: %v", msg.Topic(), err)
		return
	}
	res, err := p.ingest.HandleDisruption(ev)
	if err != nil {
		p.logger.Errorf("report %s rejected: %v", ev.ID, err)
		return
	}
	p.logger.Infof("report %s applied: %s", ev.ID, res.Summary)
}

// PublishApplied publishes ev on its feed topic, retrying with exponential
// backoff. The final failure is reported to the monitor.
func (p *PahoClient) PublishApplied(ev events.DisruptionApplied) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := p.cfg.AppliedTopic(ev.Event.Type)
	qos := p.qos("feed")

	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %s to %s", ev.Event.ID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{
		"module":   "mqtt",
		"event_id": ev.Event.ID,
		"topic":    topic,
	})
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
