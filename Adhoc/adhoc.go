package Adhoc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"TreeDetServer/classes"
	"TreeDetServer/config"
	"TreeDetServer/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const ServiceName = "tree-health-annotator"

type RegisterRequest struct {
	Id        string `json:"id"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Service   string `json:"service"`
	LabelTag  string `json:"labelTag"`
	TimeStamp int64  `json:"timestamp"`
}

type RegisterResponse struct {
	Id      string `json:"id"`
	Success bool   `json:"success"`
}

// Heartbeat announces this instance to a registry server at a fixed interval.
type Heartbeat struct {
	Id       string
	URL      string
	IP       string
	Port     int
	Interval time.Duration
	client   *resty.Client
}

func NewHeartbeat(reg config.Registry, ip string, port int) *Heartbeat {
	interval := reg.Interval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Heartbeat{
		Id:       uuid.NewString(),
		URL:      fmt.Sprintf("http://%s:%d/api/register", reg.Host, reg.Port),
		IP:       ip,
		Port:     port,
		Interval: interval,
		client:   resty.New().SetTimeout(interval),
	}
}

// Send posts one registration.
func (h *Heartbeat) Send(ctx context.Context) error {
	var respBody RegisterResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(RegisterRequest{
			Id:        h.Id,
			IP:        h.IP,
			Port:      h.Port,
			Service:   ServiceName,
			LabelTag:  classes.Tag(),
			TimeStamp: time.Now().Unix(),
		}).
		SetResult(&respBody).
		Post(h.URL)
	if err != nil {
		return errors.Wrap(err, "register request")
	}
	if resp.IsError() {
		return errors.Errorf("registry returned %s: %s", resp.Status(), resp.String())
	}
	if !respBody.Success {
		return errors.Errorf("registry rejected instance %s", h.Id)
	}
	return nil
}

// Run sends a heartbeat immediately and then every Interval until ctx is done.
// Failures are logged and never stop the loop.
func (h *Heartbeat) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log := logger.Named(logger.Adhoc).With(zap.String("id", h.Id), zap.String("url", h.URL))
	safeSend := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("heartbeat panic recovered", zap.Any("panic", r))
			}
		}()
		if err := h.Send(ctx); err != nil && ctx.Err() == nil {
			log.Warn("heartbeat failed", zap.Error(err))
		}
	}

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()
	safeSend()
	for {
		select {
		case <-ctx.Done():
			log.Info("heartbeat stopped")
			return
		case <-ticker.C:
			safeSend()
		}
	}
}

// GetOutboundIP returns the local address used to reach the internet. No
// packet is sent.
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", errors.Wrap(err, "resolve outbound ip")
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
