// Package mqtt bridges MQTT-attached controllers onto the same telemetry
// ingest path the HTTP endpoint uses. Devices publish their reading triple
// to <prefix>/<device_id>/telemetry and receive control triples on
// <prefix>/<device_id>/control.
package mqtt

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/smartgrowth/smartgrowth-server/internal/models"
	"github.com/smartgrowth/smartgrowth-server/internal/telemetry"
)

const publishTimeout = 5 * time.Second

// Client handles the MQTT connection and the telemetry subscription.
type Client struct {
	client      mqtt.Client
	topicPrefix string
	ingestor    *telemetry.Ingestor
}

// NewClient connects to the broker and subscribes to the fleet's telemetry
// topics. The client id gets a random suffix so several server instances can
// share a broker.
func NewClient(broker, clientID, username, password, topicPrefix string, ingestor *telemetry.Ingestor) (*Client, error) {
	c := &Client{
		topicPrefix: topicPrefix,
		ingestor:    ingestor,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8]))
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = c.connectHandler
	opts.OnConnectionLost = c.connectionLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.client = client
	return c, nil
}

// connectHandler is called on every successful (re)connection, so the
// telemetry subscription survives broker restarts.
func (c *Client) connectHandler(client mqtt.Client) {
	log.Info("Connected to MQTT broker")
	topic := fmt.Sprintf("%s/+/telemetry", c.topicPrefix)
	if token := client.Subscribe(topic, 1, c.telemetryHandler); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to subscribe to %s: %v", topic, token.Error())
		return
	}
	log.Infof("Subscribed to topic: %s", topic)
}

// connectionLostHandler is called when the connection is lost.
func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Warnf("Connection to MQTT broker lost: %v", err)
}

// telemetryHandler ingests one report and answers with the current control
// outputs on the device's control topic.
func (c *Client) telemetryHandler(client mqtt.Client, msg mqtt.Message) {
	deviceID, ok := c.deviceIDFromTopic(msg.Topic())
	if !ok {
		log.Warnf("Ignoring message from unexpected topic: %s", msg.Topic())
		return
	}

	dev, err := c.ingestor.CheckIn(deviceID, string(msg.Payload()))
	if err != nil {
		log.Warnf("Rejected telemetry from %s: %v", deviceID, err)
		return
	}
	if err := c.PublishControl(deviceID, dev); err != nil {
		log.Warnf("Failed to answer device %s: %v", deviceID, err)
	}
}

// deviceIDFromTopic extracts the device id from <prefix>/<id>/telemetry.
func (c *Client) deviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != c.topicPrefix || parts[2] != "telemetry" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// PublishControl sends the control triple to a device.
func (c *Client) PublishControl(deviceID string, dev models.Device) error {
	topic := fmt.Sprintf("%s/%s/control", c.topicPrefix, deviceID)
	payload := telemetry.FormatControl(dev)

	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout publishing to topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("error publishing to topic %s: %w", topic, token.Error())
	}

	log.Debugf("Published '%s' to topic '%s'", payload, topic)
	return nil
}

// Close disconnects the MQTT client.
func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
