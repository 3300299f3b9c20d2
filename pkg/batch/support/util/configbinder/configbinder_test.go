package configbinder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/configbinder"
)

type providerProps struct {
	Bucket  string        `yaml:"bucket"`
	UseSSL  bool          `yaml:"use_ssl"`
	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`
}

func TestBindProperties_WeakTyping(t *testing.T) {
	var p providerProps
	err := configbinder.BindProperties(map[string]interface{}{
		"bucket":  "datasets",
		"use_ssl": "true",
		"retries": "3",
		"timeout": "45s",
	}, &p)
	require.NoError(t, err)

	assert.Equal(t, "datasets", p.Bucket)
	assert.True(t, p.UseSSL)
	assert.Equal(t, 3, p.Retries)
	assert.Equal(t, 45*time.Second, p.Timeout)
}

func TestBindStringProperties_EmptyIsNoop(t *testing.T) {
	p := providerProps{Bucket: "keep"}
	require.NoError(t, configbinder.BindStringProperties(nil, &p))
	assert.Equal(t, "keep", p.Bucket)
}

func TestBindProperties_BadValue(t *testing.T) {
	var p providerProps
	err := configbinder.BindProperties(map[string]interface{}{"retries": "many"}, &p)
	assert.ErrorContains(t, err, "providerProps")
}
