package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdvlabs/autopilot/risk"
)

func TestOpenStoreFreshDefaults(t *testing.T) {
	t.Parallel()

	s := OpenStore(filepath.Join(t.TempDir(), "config.json"))
	st := s.Status()

	assert.Equal(t, Manual, st.ExecutionMode)
	assert.Equal(t, risk.Low, st.RiskMode)
	assert.Equal(t, 1, st.MaxTradesPerDay)
	assert.Equal(t, 0, st.TradesToday)
}

func TestOpenStoreMalformedFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st := OpenStore(path).Status()
	assert.Equal(t, Manual, st.ExecutionMode)
	assert.Equal(t, risk.Low, st.RiskMode)
}

func TestOpenStoreUnknownRiskModeYieldsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"execution_mode":"auto","risk_mode":"yolo","trades_today":2}`), 0o600))

	st := OpenStore(path).Status()
	assert.Equal(t, Manual, st.ExecutionMode)
	assert.Equal(t, risk.Low, st.RiskMode)
	assert.Equal(t, 0, st.TradesToday)
}

func TestSetRiskModeRecomputesCap(t *testing.T) {
	t.Parallel()

	s := NewStore()

	st, err := s.SetRiskMode(risk.High)
	require.NoError(t, err)
	assert.Equal(t, 5, st.MaxTradesPerDay)

	st, err = s.SetRiskMode(risk.Medium)
	require.NoError(t, err)
	assert.Equal(t, 3, st.MaxTradesPerDay)

	_, err = s.SetRiskMode(risk.Mode("extreme"))
	assert.Error(t, err)
}

func TestSetExecutionModeValidation(t *testing.T) {
	t.Parallel()

	s := NewStore()

	st, err := s.SetExecutionMode(Auto)
	require.NoError(t, err)
	assert.Equal(t, Auto, st.ExecutionMode)

	_, err = s.SetExecutionMode(ExecutionMode("turbo"))
	assert.Error(t, err)
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")

	s := OpenStore(path)
	_, err := s.SetExecutionMode(Auto)
	require.NoError(t, err)
	_, err = s.SetRiskMode(risk.High)
	require.NoError(t, err)
	_, err = s.IncrementTradesToday()
	require.NoError(t, err)

	reloaded := OpenStore(path).Status()
	assert.Equal(t, Auto, reloaded.ExecutionMode)
	assert.Equal(t, risk.High, reloaded.RiskMode)
	assert.Equal(t, 5, reloaded.MaxTradesPerDay)
	assert.Equal(t, 1, reloaded.TradesToday)
}

func TestPersistedFileOmitsDerivedCap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")

	s := OpenStore(path)
	_, err := s.SetRiskMode(risk.Medium)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "max_trades_per_day",
		"the cap is derived from risk mode, never stored")
}

func TestStoresInSeparateProcessesStayCoherent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")

	// The daemon and an admin command each hold their own handle on the file.
	daemon := OpenStore(path)
	admin := OpenStore(path)

	_, err := admin.SetExecutionMode(Auto)
	require.NoError(t, err)

	// The daemon sees the operator's change on its next read.
	assert.Equal(t, Auto, daemon.Status().ExecutionMode)

	// A daemon-side write must not revert it.
	st, err := daemon.IncrementTradesToday()
	require.NoError(t, err)
	assert.Equal(t, Auto, st.ExecutionMode)
	assert.Equal(t, 1, st.TradesToday)

	fresh := OpenStore(path).Status()
	assert.Equal(t, Auto, fresh.ExecutionMode)
	assert.Equal(t, 1, fresh.TradesToday)
}

func TestResetTradesToday(t *testing.T) {
	t.Parallel()

	s := NewStore()
	for i := 0; i < 3; i++ {
		_, err := s.IncrementTradesToday()
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.Status().TradesToday)

	st, err := s.ResetTradesToday()
	require.NoError(t, err)
	assert.Equal(t, 0, st.TradesToday)
}

func TestConcurrentMutation(t *testing.T) {
	t.Parallel()

	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementTradesToday()
		}()
		go func() {
			defer wg.Done()
			_ = s.Status()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Status().TradesToday)
}
