package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	// Retries is the number of connection attempts before giving up.
	Retries int
}

func (c Config) Address() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Connect dials the broker, retrying with exponential backoff. The client is
// disconnected when ctx is done.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (mqtt.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 5
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Address())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn("mqtt connect failed", zap.String("broker", cfg.Address()), zap.Error(token.Error()))
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.Retries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Address(), err)
	}
	log.Info("connected to mqtt broker", zap.String("broker", cfg.Address()), zap.String("client_id", cfg.ClientID))

	go func() {
		<-ctx.Done()
		Close(client, log)
	}()
	return client, nil
}

func Close(client mqtt.Client, log *zap.Logger) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		if log != nil {
			log.Info("mqtt connection closed")
		}
	}
}

var errTimeout = errors.New("mqtt operation timed out")

// wait blocks on token for at most d.
func wait(token mqtt.Token, d time.Duration) error {
	if !token.WaitTimeout(d) {
		return errTimeout
	}
	return token.Error()
}
