package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

// YAMLFile is a collab.PipelineStore that keeps its working copy in an
// in-memory Memory store and persists the full set to disk on every
// mutation.
type YAMLFile struct {
	path string
	mem  *Memory
}

// LoadYAMLFile reads path (if it exists) into a new YAMLFile store. A
// missing file is treated as an empty store rather than an error, so a
// fresh install can start with no configured pipelines.
func LoadYAMLFile(path string) (*YAMLFile, error) {
	f := &YAMLFile{path: path, mem: NewMemory()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}

	for _, dp := range doc.Pipelines {
		p, err := dp.toDomain()
		if err != nil {
			return nil, fmt.Errorf("store: pipeline %q: %w", dp.Name, err)
		}
		f.mem.pipelines[p.ID] = p
	}
	return f, nil
}

func (f *YAMLFile) save() error {
	pipelines, _ := f.mem.List(context.Background())
	doc := yamlDocument{Pipelines: make([]yamlPipeline, 0, len(pipelines))}
	for _, p := range pipelines {
		doc.Pipelines = append(doc.Pipelines, fromDomain(p))
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	return nil
}

func (f *YAMLFile) List(ctx context.Context) ([]pipeline.EventPipeline, error) { return f.mem.List(ctx) }

func (f *YAMLFile) Get(ctx context.Context, id uuid.UUID) (pipeline.EventPipeline, error) {
	return f.mem.Get(ctx, id)
}

func (f *YAMLFile) Put(ctx context.Context, p pipeline.EventPipeline) error {
	if err := f.mem.Put(ctx, p); err != nil {
		return err
	}
	return f.save()
}

func (f *YAMLFile) Delete(ctx context.Context, id uuid.UUID) error {
	if err := f.mem.Delete(ctx, id); err != nil {
		return err
	}
	return f.save()
}

func (f *YAMLFile) MarkExecuted(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := f.mem.MarkExecuted(ctx, id, at); err != nil {
		return err
	}
	return f.save()
}

// --- YAML document shape ---------------------------------------------

type yamlDocument struct {
	Pipelines []yamlPipeline `yaml:"pipelines"`
}

type yamlPipeline struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Event       string       `yaml:"event"`
	Enabled     bool         `yaml:"enabled"`
	Cancellable bool         `yaml:"cancellable"`
	Actions     []yamlAction `yaml:"actions"`
}

type yamlAction struct {
	Type    string            `yaml:"type"`
	Title   string            `yaml:"title,omitempty"`
	Message string            `yaml:"message,omitempty"`

	ShutdownMessage        string `yaml:"shutdown_message,omitempty"`
	ShutdownTimeout        string `yaml:"shutdown_timeout,omitempty"`
	ShutdownForceCloseApps bool   `yaml:"shutdown_force_close_apps,omitempty"`

	ShutdownUPSDelayMinutes float32 `yaml:"shutdown_ups_delay_minutes,omitempty"`

	Program string   `yaml:"program,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`

	Method  string            `yaml:"method,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`

	Delay  *yamlDelay  `yaml:"delay,omitempty"`
	Retry  *yamlRetry  `yaml:"retry,omitempty"`
	Repeat *yamlRepeat `yaml:"repeat,omitempty"`
}

type yamlDelay struct {
	Duration      string `yaml:"duration,omitempty"`
	BelowCapacity *uint8 `yaml:"below_capacity,omitempty"`
}

type yamlRepeat struct {
	Interval                  string  `yaml:"interval,omitempty"`
	CapacityDecreaseThreshold *uint8  `yaml:"capacity_decrease_threshold,omitempty"`
	Limit                     *uint32 `yaml:"limit,omitempty"`
}

type yamlRetry struct {
	MaxAttempts uint32         `yaml:"max_attempts"`
	Delay       yamlRetryDelay `yaml:"delay"`
}

type yamlRetryDelay struct {
	Type      string  `yaml:"type"`
	Duration  string  `yaml:"duration,omitempty"`
	Initial   string  `yaml:"initial,omitempty"`
	Increment string  `yaml:"increment,omitempty"`
	Exponent  float64 `yaml:"exponent,omitempty"`
}

func fromDomain(p pipeline.EventPipeline) yamlPipeline {
	dp := yamlPipeline{
		ID:          p.ID.String(),
		Name:        p.Name,
		Event:       p.Event.String(),
		Enabled:     p.Enabled,
		Cancellable: p.Cancellable,
		Actions:     make([]yamlAction, 0, len(p.Actions)),
	}
	for _, a := range p.Actions {
		dp.Actions = append(dp.Actions, yamlActionFromDomain(a))
	}
	return dp
}

func yamlActionFromDomain(a pipeline.Action) yamlAction {
	ya := yamlAction{
		Type:                    string(a.Type),
		Title:                   a.Title,
		Message:                 a.Message,
		ShutdownMessage:         a.ShutdownMessage,
		ShutdownForceCloseApps:  a.ShutdownForceCloseApps,
		ShutdownUPSDelayMinutes: a.ShutdownUPSDelayMinutes,
		Program:                 a.Program,
		Args:                    a.Args,
		Method:                  a.Method,
		URL:                     a.URL,
		Headers:                 a.Headers,
		Body:                    a.Body,
	}
	if a.ShutdownTimeout > 0 {
		ya.ShutdownTimeout = a.ShutdownTimeout.String()
	}
	if a.Timeout > 0 {
		ya.Timeout = a.Timeout.String()
	}
	if a.Delay != nil {
		yd := &yamlDelay{BelowCapacity: a.Delay.BelowCapacity}
		if a.Delay.Duration != nil {
			yd.Duration = a.Delay.Duration.String()
		}
		ya.Delay = yd
	}
	if a.Repeat != nil {
		yr := &yamlRepeat{CapacityDecreaseThreshold: a.Repeat.CapacityDecreaseThreshold, Limit: a.Repeat.Limit}
		if a.Repeat.Interval != nil {
			yr.Interval = a.Repeat.Interval.String()
		}
		ya.Repeat = yr
	}
	if a.Retry != nil {
		ya.Retry = &yamlRetry{MaxAttempts: a.Retry.MaxAttempts, Delay: retryDelayToYAML(a.Retry.Delay)}
	}
	return ya
}

func retryDelayToYAML(d pipeline.RetryDelay) yamlRetryDelay {
	switch v := d.(type) {
	case pipeline.FixedRetryDelay:
		return yamlRetryDelay{Type: "fixed", Duration: v.Duration.String()}
	case pipeline.LinearBackoffRetryDelay:
		return yamlRetryDelay{Type: "linear", Initial: v.Initial.String(), Increment: v.Increment.String()}
	case pipeline.ExponentialBackoffRetryDelay:
		return yamlRetryDelay{Type: "exponential", Initial: v.Initial.String(), Exponent: v.Exponent}
	default:
		return yamlRetryDelay{Type: "fixed"}
	}
}

func (dp yamlPipeline) toDomain() (pipeline.EventPipeline, error) {
	id, err := uuid.Parse(dp.ID)
	if err != nil {
		id = uuid.New()
	}
	ev, err := parseEvent(dp.Event)
	if err != nil {
		return pipeline.EventPipeline{}, err
	}

	actions := make(pipeline.ActionPipeline, 0, len(dp.Actions))
	for _, ya := range dp.Actions {
		a, err := ya.toDomain()
		if err != nil {
			return pipeline.EventPipeline{}, err
		}
		actions = append(actions, a)
	}

	return pipeline.EventPipeline{
		ID:          id,
		Name:        dp.Name,
		Event:       ev,
		Enabled:     dp.Enabled,
		Cancellable: dp.Cancellable,
		Actions:     actions,
	}, nil
}

func (ya yamlAction) toDomain() (pipeline.Action, error) {
	a := pipeline.Action{
		Type:                    pipeline.ActionType(ya.Type),
		Title:                   ya.Title,
		Message:                 ya.Message,
		ShutdownMessage:         ya.ShutdownMessage,
		ShutdownForceCloseApps:  ya.ShutdownForceCloseApps,
		ShutdownUPSDelayMinutes: ya.ShutdownUPSDelayMinutes,
		Program:                 ya.Program,
		Args:                    ya.Args,
		Method:                  ya.Method,
		URL:                     ya.URL,
		Headers:                 ya.Headers,
		Body:                    ya.Body,
	}
	if ya.ShutdownTimeout != "" {
		d, err := time.ParseDuration(ya.ShutdownTimeout)
		if err != nil {
			return a, fmt.Errorf("invalid shutdown timeout: %w", err)
		}
		a.ShutdownTimeout = d
	}
	if ya.Timeout != "" {
		d, err := time.ParseDuration(ya.Timeout)
		if err != nil {
			return a, fmt.Errorf("invalid timeout: %w", err)
		}
		a.Timeout = d
	}
	if ya.Delay != nil {
		ad := &pipeline.ActionDelay{BelowCapacity: ya.Delay.BelowCapacity}
		if ya.Delay.Duration != "" {
			d, err := time.ParseDuration(ya.Delay.Duration)
			if err != nil {
				return a, fmt.Errorf("invalid delay duration: %w", err)
			}
			ad.Duration = &d
		}
		a.Delay = ad
	}
	if ya.Repeat != nil {
		ar := &pipeline.ActionRepeat{CapacityDecreaseThreshold: ya.Repeat.CapacityDecreaseThreshold, Limit: ya.Repeat.Limit}
		if ya.Repeat.Interval != "" {
			d, err := time.ParseDuration(ya.Repeat.Interval)
			if err != nil {
				return a, fmt.Errorf("invalid repeat interval: %w", err)
			}
			ar.Interval = &d
		}
		a.Repeat = ar
	}
	if ya.Retry != nil {
		delay, err := retryDelayFromYAML(ya.Retry.Delay)
		if err != nil {
			return a, err
		}
		a.Retry = &pipeline.ActionRetry{MaxAttempts: ya.Retry.MaxAttempts, Delay: delay}
	}
	return a, nil
}

func retryDelayFromYAML(y yamlRetryDelay) (pipeline.RetryDelay, error) {
	switch y.Type {
	case "fixed", "":
		d, err := time.ParseDuration(y.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid fixed retry delay: %w", err)
		}
		return pipeline.FixedRetryDelay{Duration: d}, nil
	case "linear":
		initial, err := time.ParseDuration(y.Initial)
		if err != nil {
			return nil, fmt.Errorf("invalid linear retry delay initial: %w", err)
		}
		increment, err := time.ParseDuration(y.Increment)
		if err != nil {
			return nil, fmt.Errorf("invalid linear retry delay increment: %w", err)
		}
		return pipeline.LinearBackoffRetryDelay{Initial: initial, Increment: increment}, nil
	case "exponential":
		initial, err := time.ParseDuration(y.Initial)
		if err != nil {
			return nil, fmt.Errorf("invalid exponential retry delay initial: %w", err)
		}
		return pipeline.ExponentialBackoffRetryDelay{Initial: initial, Exponent: y.Exponent}, nil
	default:
		return nil, fmt.Errorf("unknown retry delay type %q", y.Type)
	}
}

func parseEvent(s string) (ups.Event, error) {
	for _, ev := range []ups.Event{
		ups.EventACFailure, ups.EventACRecovery, ups.EventUPSFault,
		ups.EventLowBatteryModeStart, ups.EventLowBatteryModeEnd,
		ups.EventBatteryTestStart, ups.EventBatteryTestEnd,
	} {
		if ev.String() == s {
			return ev, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", s)
}
