// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/SoftPWM/pkg/softpwm"
)

const (
	mqttPublishTimeout = time.Millisecond * 200
	mqttInfoSuffix     = "/info"
	mqttSetSuffix      = "/set"
	mqttLogsTopic      = "logs"
)

// CommandHandler is called for every value received on a command topic.
type CommandHandler func(pin int, attr, value string) error

// MQTTConfig of the MQTT publisher.
type MQTTConfig struct {
	// Address of the broker (host:port)
	BrokerAddress string
	// Client ID used to connect
	ClientID string
	// Prefix of all topics
	TopicPrefix string
}

// MQTTDependencies of the MQTT publisher.
type MQTTDependencies struct {
	Log zerolog.Logger
}

// MQTTPublisher announces channels on an MQTT broker and forwards
// values received on their command topics.
//
// For every channel it publishes a retained message on
// <prefix>pwm<pin>/info and listens on <prefix>pwm<pin>/<attr>/set.
// Publication is best effort: channels published while disconnected
// are announced on (re)connect and send failures are only logged.
type MQTTPublisher struct {
	log         zerolog.Logger
	mutex       sync.Mutex
	config      MQTTConfig
	topicPrefix string
	client      mqttapi.Client
	handler     CommandHandler
	channels    map[string]*mqttPublication
}

type mqttPublication struct {
	name    string
	topic   string
	payload []byte
}

func (p *mqttPublication) Name() string { return p.name }

// channelInfoMessage is the payload of the info topic.
type channelInfoMessage struct {
	Name       string   `json:"name"`
	Slot       int      `json:"slot"`
	Pin        int      `json:"pin"`
	Attributes []string `json:"attributes"`
}

// NewMQTTPublisher creates an MQTT publisher with given config.
func NewMQTTPublisher(conf MQTTConfig, deps MQTTDependencies) *MQTTPublisher {
	topicPrefix := strings.TrimSuffix(conf.TopicPrefix, "/")
	if topicPrefix != "" {
		topicPrefix += "/"
	}
	if conf.ClientID == "" {
		conf.ClientID = "softpwm"
	}
	return &MQTTPublisher{
		log:         deps.Log.With().Str("component", "mqtt-publisher").Logger(),
		config:      conf,
		topicPrefix: topicPrefix,
		channels:    make(map[string]*mqttPublication),
	}
}

// SetCommandHandler sets the callback for received command values.
func (p *MQTTPublisher) SetCommandHandler(h CommandHandler) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.handler = h
}

// Connect to the broker and subscribe to the command topics.
// Publish and Unpublish do not wait for the connection.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + p.config.BrokerAddress).
		SetClientID(p.config.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(func(c mqttapi.Client, m mqttapi.Message) {
		// Ignore messages when no subscription match
	})
	opts.SetOnConnectHandler(func(c mqttapi.Client) {
		p.log.Debug().Msg("Connected to MQTT")
		if err := p.subscribe(c); err != nil {
			p.log.Error().Err(err).Msg("Subscribe failed")
		}
		p.announce(c)
	})

	client := mqttapi.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return errors.Wrap(token.Error(), "failed to connect to mqtt")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.client = client
	return nil
}

// subscribe to all command topics.
func (p *MQTTPublisher) subscribe(c mqttapi.Client) error {
	topic := p.topicPrefix + "+/+" + mqttSetSuffix
	if token := c.Subscribe(topic, 0, p.onMessage); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "failed to subscribe to '%s'", topic)
	}
	p.log.Debug().Str("topic", topic).Msg("Subscribed to MQTT topic")
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		p.client.Disconnect(250)
		p.client = nil
	}
	return nil
}

// Publish the channel by sending a retained info message.
// The channel is announced again on every (re)connect.
func (p *MQTTPublisher) Publish(ctx context.Context, slot, pin int) (softpwm.Publication, error) {
	name := softpwm.ChannelName(pin)
	payload, err := json.Marshal(channelInfoMessage{
		Name:       name,
		Slot:       slot,
		Pin:        pin,
		Attributes: softpwm.AttributeNames,
	})
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal failed")
	}
	pub := &mqttPublication{
		name:    name,
		topic:   p.topicPrefix + name + mqttInfoSuffix,
		payload: payload,
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.channels[name] = pub
	if p.client != nil {
		p.sendInfoLocked(p.client, pub.topic, pub.payload)
	}
	return pub, nil
}

// Unpublish the channel by clearing its retained info message.
func (p *MQTTPublisher) Unpublish(ctx context.Context, pub softpwm.Publication) error {
	mp, ok := pub.(*mqttPublication)
	if !ok {
		return errors.Wrapf(NotPublishedError, "channel '%s'", pub.Name())
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.channels, mp.name)
	if p.client != nil {
		p.sendInfoLocked(p.client, mp.topic, []byte{})
	}
	return nil
}

// announce makes the given client current and sends the info
// message of all published channels.
func (p *MQTTPublisher) announce(c mqttapi.Client) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.client = c
	for _, pub := range p.channels {
		p.sendInfoLocked(c, pub.topic, pub.payload)
	}
}

// PublishLog sends a single log line to <prefix>logs.
func (p *MQTTPublisher) PublishLog(ctx context.Context, line []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.client == nil {
		return errors.Errorf("not connected to mqtt broker")
	}
	return p.sendLocked(p.client, p.topicPrefix+mqttLogsTopic, line, false)
}

// sendInfoLocked sends a retained info message, logging failures.
func (p *MQTTPublisher) sendInfoLocked(client mqttapi.Client, topic string, payload []byte) {
	if err := p.sendLocked(client, topic, payload, true); err != nil {
		p.log.Warn().Err(err).
			Str("topic", topic).
			Msg("Failed to publish channel info")
	}
}

// sendLocked sends a message to the given topic.
// Failures are counted, not logged, since log lines are sent here too.
func (p *MQTTPublisher) sendLocked(client mqttapi.Client, topic string, payload []byte, retain bool) error {
	token := client.Publish(topic, 0, retain, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		mqttSendErrorsTotal.Inc()
		return errors.Errorf("timeout publishing to '%s'", topic)
	}
	if err := token.Error(); err != nil {
		mqttSendErrorsTotal.Inc()
		return errors.Wrapf(err, "failed to publish to '%s'", topic)
	}
	return nil
}

// Receive command messages
func (p *MQTTPublisher) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	pin, attr, ok := p.parseCommandTopic(msg.Topic())
	if !ok {
		// Not a valid command
		return
	}
	p.mutex.Lock()
	handler := p.handler
	p.mutex.Unlock()
	if handler == nil {
		return
	}
	value := string(msg.Payload())
	if err := handler(pin, attr, value); err != nil {
		p.log.Warn().Err(err).
			Int("pin", pin).
			Str("attr", attr).
			Str("value", value).
			Msg("Command failed")
	}
}

// parseCommandTopic splits <prefix>pwm<pin>/<attr>/set into pin and attribute.
func (p *MQTTPublisher) parseCommandTopic(topic string) (int, string, bool) {
	if !strings.HasPrefix(topic, p.topicPrefix) || !strings.HasSuffix(topic, mqttSetSuffix) {
		return 0, "", false
	}
	topic = strings.TrimSuffix(strings.TrimPrefix(topic, p.topicPrefix), mqttSetSuffix)
	parts := strings.Split(topic, "/")
	if len(parts) != 2 {
		return 0, "", false
	}
	pin, err := softpwm.ParseChannelName(parts[0])
	if err != nil {
		return 0, "", false
	}
	return pin, parts[1], true
}

// CommandTopic returns the topic used to set an attribute of a channel.
func (p *MQTTPublisher) CommandTopic(pin int, attr string) string {
	return fmt.Sprintf("%s%s/%s%s", p.topicPrefix, softpwm.ChannelName(pin), attr, mqttSetSuffix)
}
