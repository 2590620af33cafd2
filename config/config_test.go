package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type WidgetConfig struct {
	Name   string `mapstructure:"name" default:"widget"`
	Amount int    `mapstructure:"amount" default:"7"`
}

func TestGetReturnsRegisteredConfig(t *testing.T) {
	mu.Lock()
	registeredConfigs["widgetconfig"] = &WidgetConfig{Name: "widget", Amount: 7}
	mu.Unlock()

	got := Get[WidgetConfig]()
	assert.Equal(t, "widget", got.Name)
	assert.Equal(t, 7, got.Amount)

	gotPtr := Get[*WidgetConfig]()
	assert.Equal(t, 7, gotPtr.Amount)
}

func TestGetUnregisteredReturnsZeroValue(t *testing.T) {
	type unregistered struct{ X int }
	assert.Equal(t, unregistered{}, Get[unregistered]())
}

func TestEngineSetDefaultFallsBackToConstsWhenUnset(t *testing.T) {
	var e Engine
	e.setDefault()
	assert.Equal(t, 1000, e.BatchSize)
	assert.Equal(t, 100, e.KnnEf)
}

func TestHeartbeatSetDefaultAppliesDurationTag(t *testing.T) {
	var h Heartbeat
	h.setDefault()
	assert.Equal(t, 30*time.Second, h.Expiry)
}

func TestMergeNonZeroFieldsKeepsDestWhenSrcZero(t *testing.T) {
	dst := WidgetConfig{Name: "from-file", Amount: 3}
	src := WidgetConfig{} // zero values: env var not set
	mergeNonZeroFields(reflect.ValueOf(&dst).Elem(), reflect.ValueOf(&src).Elem())
	assert.Equal(t, "from-file", dst.Name)
	assert.Equal(t, 3, dst.Amount)
}
