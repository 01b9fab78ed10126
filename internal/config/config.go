// Package config loads the absfeat configuration from a YAML file and
// ABSENCE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cwbudde/algo-absence/dsp/wavelet"
	"github.com/cwbudde/algo-absence/dsp/window"
	"github.com/cwbudde/algo-absence/eeg/absence"
	"github.com/cwbudde/algo-absence/eeg/annotation"
	"github.com/cwbudde/algo-absence/eeg/epoch"
	"github.com/cwbudde/algo-absence/eeg/montage"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when the configuration fails validation.
var ErrInvalid = errors.New("config: invalid")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ABSENCE_"

type Band struct {
	Low  float64 `yaml:"low" validate:"gt=0"`
	High float64 `yaml:"high" validate:"gtfield=Low"`
}

type Engine struct {
	SampleRate       float64 `yaml:"sample_rate" validate:"gt=0"`
	FilterTaps       int     `yaml:"filter_taps" validate:"gte=1"`
	BroadBand        Band    `yaml:"broad_band"`
	NarrowBand       Band    `yaml:"narrow_band"`
	Window           string  `yaml:"window" validate:"oneof=rectangular hann hamming blackman kaiser"`
	PassZero         bool    `yaml:"pass_zero"`
	Wavelet          string  `yaml:"wavelet" validate:"wavelet"`
	WaveletMode      string  `yaml:"wavelet_mode" validate:"extmode"`
	ShortcutSingular bool    `yaml:"shortcut_singular"`
}

type Epochs struct {
	Duration   float64 `yaml:"duration" validate:"gt=0"`
	Overlap    float64 `yaml:"overlap" validate:"gte=0,lt=100"`
	Percentage float64 `yaml:"percentage" validate:"gte=0,lte=100"`
}

type Annotations struct {
	Interictal bool `yaml:"interictal"`
}

type Pair struct {
	Positive string `yaml:"positive" validate:"required"`
	Negative string `yaml:"negative" validate:"required"`
}

type Pipeline struct {
	// Input is a glob of recordings.
	Input string `yaml:"input"`
	// Workers bounds concurrent feature extraction; 0 uses GOMAXPROCS.
	Workers  int      `yaml:"workers" validate:"gte=0"`
	Channels []string `yaml:"channels" validate:"min=1,dive,required"`
	Pairs    []Pair   `yaml:"pairs" validate:"min=1,dive"`
}

type Output struct {
	Kind        string `yaml:"kind" validate:"oneof=json postgres mqtt none"`
	Dir         string `yaml:"dir" validate:"required_if=Kind json"`
	Naming      string `yaml:"naming" validate:"oneof=index base"`
	Metadata    bool   `yaml:"metadata"`
	PostgresURL string `yaml:"postgres_url" validate:"required_if=Kind postgres"`
	MaxConns    int32  `yaml:"max_conns" validate:"gte=0"`
	MQTT        MQTT   `yaml:"mqtt"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QoS      uint8  `yaml:"qos" validate:"lte=2"`
	Retain   bool   `yaml:"retain"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal disabled off"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Root is the complete configuration.
type Root struct {
	Engine      Engine      `yaml:"engine"`
	Epochs      Epochs      `yaml:"epochs"`
	Annotations Annotations `yaml:"annotations"`
	Pipeline    Pipeline    `yaml:"pipeline"`
	Output      Output      `yaml:"output"`
	Log         Log         `yaml:"log"`
}

// Default mirrors absence.DefaultConfig and epoch.DefaultOptions.
func Default() Root {
	ec := absence.DefaultConfig()
	eo := epoch.DefaultOptions()

	pairs := make([]Pair, len(montage.EarPairs))
	for i, p := range montage.EarPairs {
		pairs[i] = Pair{Positive: p.Positive, Negative: p.Negative}
	}

	return Root{
		Engine: Engine{
			SampleRate:  ec.SampleRate,
			FilterTaps:  ec.FilterTaps,
			BroadBand:   Band{Low: ec.BroadBand.Low, High: ec.BroadBand.High},
			NarrowBand:  Band{Low: ec.NarrowBand.Low, High: ec.NarrowBand.High},
			Window:      ec.Window.String(),
			Wavelet:     ec.Wavelet,
			WaveletMode: ec.WaveletMode.String(),
		},
		Epochs: Epochs{Duration: eo.Duration, Overlap: eo.Overlap, Percentage: eo.Percentage},
		Pipeline: Pipeline{
			Channels: append([]string(nil), montage.EarChannels...),
			Pairs:    pairs,
		},
		Output: Output{Kind: "json", Dir: ".", Naming: "index"},
		Log:    Log{Level: "info", Format: "console"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path
// is not empty) and the environment, then validates the result.
func Load(path string) (*Root, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		decErr := dec.Decode(&cfg)
		f.Close()
		if decErr != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, decErr)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type setter func(r *Root, v string) error

func str(f func(*Root) *string) setter {
	return func(r *Root, v string) error { *f(r) = v; return nil }
}

func float(f func(*Root) *float64) setter {
	return func(r *Root, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*f(r) = x
		return nil
	}
}

func integer(f func(*Root) *int) setter {
	return func(r *Root, v string) error {
		x, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f(r) = x
		return nil
	}
}

func boolean(f func(*Root) *bool) setter {
	return func(r *Root, v string) error {
		x, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*f(r) = x
		return nil
	}
}

var envSetters = map[string]setter{
	"SAMPLE_RATE":       float(func(r *Root) *float64 { return &r.Engine.SampleRate }),
	"FILTER_TAPS":       integer(func(r *Root) *int { return &r.Engine.FilterTaps }),
	"WINDOW":            str(func(r *Root) *string { return &r.Engine.Window }),
	"WAVELET":           str(func(r *Root) *string { return &r.Engine.Wavelet }),
	"WAVELET_MODE":      str(func(r *Root) *string { return &r.Engine.WaveletMode }),
	"SHORTCUT_SINGULAR": boolean(func(r *Root) *bool { return &r.Engine.ShortcutSingular }),
	"EPOCH_DURATION":    float(func(r *Root) *float64 { return &r.Epochs.Duration }),
	"EPOCH_OVERLAP":     float(func(r *Root) *float64 { return &r.Epochs.Overlap }),
	"LABEL_PERCENTAGE":  float(func(r *Root) *float64 { return &r.Epochs.Percentage }),
	"INTERICTAL":        boolean(func(r *Root) *bool { return &r.Annotations.Interictal }),
	"INPUT":             str(func(r *Root) *string { return &r.Pipeline.Input }),
	"WORKERS":           integer(func(r *Root) *int { return &r.Pipeline.Workers }),
	"OUTPUT_KIND":       str(func(r *Root) *string { return &r.Output.Kind }),
	"OUTPUT_DIR":        str(func(r *Root) *string { return &r.Output.Dir }),
	"OUTPUT_NAMING":     str(func(r *Root) *string { return &r.Output.Naming }),
	"POSTGRES_URL":      str(func(r *Root) *string { return &r.Output.PostgresURL }),
	"MQTT_BROKER":       str(func(r *Root) *string { return &r.Output.MQTT.Broker }),
	"MQTT_USERNAME":     str(func(r *Root) *string { return &r.Output.MQTT.Username }),
	"MQTT_PASSWORD":     str(func(r *Root) *string { return &r.Output.MQTT.Password }),
	"LOG_LEVEL":         str(func(r *Root) *string { return &r.Log.Level }),
	"LOG_FORMAT":        str(func(r *Root) *string { return &r.Log.Format }),
}

// EnvKeys lists the supported environment variables.
func EnvKeys() []string {
	keys := make([]string, 0, len(envSetters))
	for k := range envSetters {
		keys = append(keys, EnvPrefix+k)
	}
	return keys
}

// ApplyEnv overrides fields from lookup, normally os.LookupEnv.
func (r *Root) ApplyEnv(lookup func(string) (string, bool)) error {
	for key, set := range envSetters {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := set(r, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
		}
	}
	return nil
}

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func validate() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("wavelet", func(fl validator.FieldLevel) bool {
			_, err := wavelet.Lookup(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("extmode", func(fl validator.FieldLevel) bool {
			_, err := wavelet.ParseMode(fl.Field().String())
			return err == nil
		})
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			o := sl.Current().Interface().(Output)
			if o.Kind == "mqtt" && o.MQTT.Broker == "" {
				sl.ReportError(o.MQTT.Broker, "mqtt.broker", "Broker", "required_if", "Kind mqtt")
			}
		}, Output{})
		vInst = v
	})
	return vInst
}

// Validate checks field constraints.
func (r *Root) Validate() error {
	err := validate().Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %s", strings.TrimPrefix(fe.Namespace(), "Root."), fe.Tag())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// EngineConfig maps the engine section to the feature engine settings.
func (r *Root) EngineConfig() (absence.Config, error) {
	w, err := window.Parse(r.Engine.Window)
	if err != nil {
		return absence.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	mode, err := wavelet.ParseMode(r.Engine.WaveletMode)
	if err != nil {
		return absence.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	c := absence.DefaultConfig()
	c.SampleRate = r.Engine.SampleRate
	c.EpochSeconds = r.Epochs.Duration
	c.FilterTaps = r.Engine.FilterTaps
	c.BroadBand = absence.Band{Low: r.Engine.BroadBand.Low, High: r.Engine.BroadBand.High}
	c.NarrowBand = absence.Band{Low: r.Engine.NarrowBand.Low, High: r.Engine.NarrowBand.High}
	c.Window = w
	c.PassZero = r.Engine.PassZero
	c.Wavelet = r.Engine.Wavelet
	c.WaveletMode = mode
	c.ShortcutSingular = r.Engine.ShortcutSingular
	return c, nil
}

// EpochOptions returns the segmentation settings.
func (r *Root) EpochOptions() epoch.Options {
	return epoch.Options{
		Duration:   r.Epochs.Duration,
		Overlap:    r.Epochs.Overlap,
		Percentage: r.Epochs.Percentage,
	}
}

// AnnotationOptions returns the event extraction settings.
func (r *Root) AnnotationOptions() annotation.Options {
	return annotation.Options{Interictal: r.Annotations.Interictal}
}

// MontagePairs returns the configured bipolar derivations.
func (r *Root) MontagePairs() []montage.Pair {
	out := make([]montage.Pair, len(r.Pipeline.Pairs))
	for i, p := range r.Pipeline.Pairs {
		out[i] = montage.Pair{Positive: p.Positive, Negative: p.Negative}
	}
	return out
}
