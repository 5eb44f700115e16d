package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	BackendDNN    = "dnn"
	BackendRemote = "remote"

	DefaultPath = "config.yaml"
)

type Detector struct {
	Backend        string  `yaml:"backend"`
	ModelPath      string  `yaml:"modelPath"`
	InferenceURL   string  `yaml:"inferenceURL"`
	Conf           float32 `yaml:"conf"`
	Iou            float32 `yaml:"iou"`
	InputSize      int     `yaml:"inputSize"`
	UseGPU         bool    `yaml:"useGPU"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
}

func (d Detector) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

type Labels struct {
	// NamesFile is the model's class list, one per line, checked against the label set.
	NamesFile string `yaml:"namesFile"`
	// Tag pins the expected label set tag.
	Tag string `yaml:"tag"`
}

// Render controls how labels and boxes are drawn.
type Render struct {
	FontScale     float64 `yaml:"fontScale"`
	LineThickness int     `yaml:"lineThickness"`
	LabelAlpha    float64 `yaml:"labelAlpha"`
}

type Registry struct {
	Enabled         bool   `yaml:"enabled"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	IntervalSeconds int    `yaml:"intervalSeconds"`
	AdvertiseIP     string `yaml:"advertiseIP"`
}

func (r Registry) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

type Config struct {
	HTTPPort    int      `yaml:"httpPort"`
	RPCPort     int      `yaml:"rpcPort"`
	MetricsPort int      `yaml:"metricsPort"`
	WorkersNum  int      `yaml:"workersNum"`
	Development bool     `yaml:"development"`
	Detector    Detector `yaml:"detector"`
	Labels      Labels   `yaml:"labels"`
	Render      Render   `yaml:"render"`
	Registry    Registry `yaml:"registry"`
}

func Default() *Config {
	return &Config{
		HTTPPort:    8080,
		RPCPort:     50051,
		MetricsPort: 50053,
		WorkersNum:  1,
		Detector: Detector{
			Backend:        BackendDNN,
			ModelPath:      "model/best.onnx",
			Conf:           0.25,
			Iou:            0.45,
			InputSize:      640,
			TimeoutSeconds: 30,
		},
		Render: Render{
			FontScale:     0.4,
			LineThickness: 2,
			LabelAlpha:    0.5,
		},
		Registry: Registry{
			IntervalSeconds: 5,
		},
	}
}

// Load reads a yaml file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, filling in defaults for zero values that have one.
func (c *Config) Validate() error {
	if c.WorkersNum <= 0 {
		c.WorkersNum = 1
	}
	if c.Detector.InputSize <= 0 {
		c.Detector.InputSize = 640
	}
	if c.Detector.TimeoutSeconds <= 0 {
		c.Detector.TimeoutSeconds = 30
	}
	if c.Registry.IntervalSeconds <= 0 {
		c.Registry.IntervalSeconds = 5
	}
	if c.Render.FontScale <= 0 {
		c.Render.FontScale = 0.4
	}
	if c.Render.LineThickness <= 0 {
		c.Render.LineThickness = 2
	}
	if c.Render.LabelAlpha < 0 || c.Render.LabelAlpha > 1 {
		return errors.Errorf("render.labelAlpha must be between 0.0 and 1.0, got %f", c.Render.LabelAlpha)
	}
	if c.Detector.Conf < 0 || c.Detector.Conf > 1 {
		return errors.Errorf("confidence must be between 0.0 and 1.0, got %f", c.Detector.Conf)
	}
	if c.Detector.Iou < 0 || c.Detector.Iou > 1 {
		return errors.Errorf("IoU must be between 0.0 and 1.0, got %f", c.Detector.Iou)
	}
	switch c.Detector.Backend {
	case BackendDNN:
		if c.Detector.ModelPath == "" {
			return errors.New("detector.modelPath cannot be empty for the dnn backend")
		}
	case BackendRemote:
		if c.Detector.InferenceURL == "" {
			return errors.New("detector.inferenceURL cannot be empty for the remote backend")
		}
	default:
		return errors.Errorf("unsupported detector backend: %q", c.Detector.Backend)
	}
	for name, port := range map[string]int{"httpPort": c.HTTPPort, "rpcPort": c.RPCPort, "metricsPort": c.MetricsPort} {
		if port < 0 || port > 65535 {
			return errors.Errorf("%s out of range: %d", name, port)
		}
	}
	if c.Registry.Enabled && c.Registry.Host == "" {
		return errors.New("registry.host cannot be empty when the registry is enabled")
	}
	return nil
}
