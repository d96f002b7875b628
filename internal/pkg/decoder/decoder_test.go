package decoder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
	"github.com/anicoll/baratron-integration/internal/pkg/registry"
)

func respBody(items ...string) []byte {
	body := "<PollResponse>"
	for i := 0; i+1 < len(items); i += 2 {
		body += fmt.Sprintf(`<V Name="%s">%s</V>`, items[i], items[i+1])
	}
	return []byte(body + "</PollResponse>")
}

func TestDecode_Scenarios(t *testing.T) {
	tests := map[string]struct {
		identifier string
		raw        string
		field      string
		want       any
	}{
		"pressure units index": {
			identifier: "EVID_105", raw: "2", field: registry.PressureUnits, want: "torr",
		},
		"status no bits": {
			identifier: "EVID_208", raw: "0", field: registry.SystemStatus, want: "ok",
		},
		"status zero adjusted": {
			identifier: "EVID_208", raw: "64", field: registry.SystemStatus, want: "Zero Adjusted",
		},
		"status several bits": {
			identifier: "EVID_208", raw: "2114", field: registry.SystemStatus,
			want: "Signal Error (ADC0), Zero Adjusted, Diaphragm Shorted",
		},
		"status only unlabelled bits": {
			identifier: "EVID_208", raw: "129", field: registry.SystemStatus, want: "ok",
		},
		"run hours": {
			identifier: "EVID_102", raw: "7200", field: registry.RunHours, want: 2.0,
		},
		"wait hours": {
			identifier: "EVID_107", raw: "5400", field: registry.WaitHours, want: 1.5,
		},
		"pressure": {
			identifier: "EVID_100", raw: "123.4", field: registry.Pressure, want: 123.4,
		},
		"pressure with whitespace": {
			identifier: "EVID_100", raw: " 1.5e-3\n", field: registry.Pressure, want: 0.0015,
		},
		"full scale": {
			identifier: "EVID_1103", raw: "1000", field: registry.FullScalePressure, want: 1000.0,
		},
		"led none": {
			identifier: "EVID_106", raw: "0", field: registry.LEDColor, want: "unknown",
		},
		"led green": {
			identifier: "EVID_106", raw: "2", field: registry.LEDColor, want: "green",
		},
		"led unlabelled bit": {
			identifier: "EVID_106", raw: "8", field: registry.LEDColor, want: "unknown",
		},
		"led green blinking": {
			identifier: "EVID_106", raw: "18", field: registry.LEDColor, want: "green, blinking",
		},
	}
	d := New(registry.Default())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			state, err := d.Decode(respBody(tt.identifier, tt.raw))
			require.NoError(t, err)
			assert.Equal(t, model.State{tt.field: tt.want}, state)
		})
	}
}

func TestDecode_FullResponse(t *testing.T) {
	payload := respBody(
		"EVID_100", "0.52",
		"EVID_102", "36000",
		"EVID_105", "2",
		"EVID_106", "2",
		"EVID_107", "0",
		"EVID_114", "0.01",
		"EVID_208", "0",
		"EVID_1103", "1",
	)

	state, err := New(registry.Default()).Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, model.State{
		registry.Pressure:          0.52,
		registry.RunHours:          10.0,
		registry.PressureUnits:     "torr",
		registry.LEDColor:          "green",
		registry.WaitHours:         0.0,
		registry.Drift:             0.01,
		registry.SystemStatus:      "ok",
		registry.FullScalePressure: 1.0,
	}, state)
}

func TestDecode_AbsentFieldsAreAbsent(t *testing.T) {
	state, err := New(registry.Default()).Decode(respBody("EVID_100", "1"))
	require.NoError(t, err)
	assert.Len(t, state, 1)
	_, ok := state[registry.RunHours]
	assert.False(t, ok)
}

func TestDecode_UnknownIdentifierSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	original := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(original) })

	state, err := New(registry.Default()).Decode(respBody("EVID_999", "x", "EVID_105", "9"))
	require.NoError(t, err)
	assert.Equal(t, model.State{registry.PressureUnits: "Pa"}, state)

	entries := logs.FilterMessage("skipping unknown identifier").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "EVID_999", entries[0].ContextMap()["identifier"])
}

func TestDecode_DuplicateIdentifierLastWins(t *testing.T) {
	state, err := New(registry.Default()).Decode(respBody("EVID_105", "1", "EVID_105", "2"))
	require.NoError(t, err)
	assert.Equal(t, "torr", state[registry.PressureUnits])
}

func TestDecode_Idempotent(t *testing.T) {
	d := New(registry.Default())
	payload := respBody("EVID_100", "3.2", "EVID_208", "64", "EVID_106", "1")

	first, err := d.Decode(payload)
	require.NoError(t, err)
	second, err := d.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecode_RootTagNotChecked(t *testing.T) {
	state, err := New(registry.Default()).Decode([]byte(`<?xml version="1.0"?><Anything><V Name="EVID_105">0</V></Anything>`))
	require.NoError(t, err)
	assert.Equal(t, "full-scale ratio", state[registry.PressureUnits])
}

func TestDecode_NestedVIgnored(t *testing.T) {
	state, err := New(registry.Default()).Decode([]byte(`<R><G><V Name="EVID_105">1</V></G><V Name="EVID_100">2</V></R>`))
	require.NoError(t, err)
	assert.Equal(t, model.State{registry.Pressure: 2.0}, state)
}

func TestDecode_ParseErrors(t *testing.T) {
	tests := map[string]string{
		"unclosed tag":   `<PollResponse><V Name="EVID_100">1</V>`,
		"empty":          ``,
		"not xml":        `Could not communicate`,
		"mismatched end": `<PollResponse><V Name="EVID_100">1</X></PollResponse>`,
		"trailing root":  `<A></A><B></B>`,
		"trailing text":  `<A></A>junk`,
	}
	d := New(registry.Default())
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := d.Decode([]byte(payload))
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestDecode_DecodeErrors(t *testing.T) {
	tests := map[string]struct {
		identifier string
		raw        string
		field      string
	}{
		"unit index past end":   {identifier: "EVID_105", raw: "13", field: registry.PressureUnits},
		"unit index negative":   {identifier: "EVID_105", raw: "-1", field: registry.PressureUnits},
		"unit index not number": {identifier: "EVID_105", raw: "torr", field: registry.PressureUnits},
		"status negative":       {identifier: "EVID_208", raw: "-4", field: registry.SystemStatus},
		"pressure not number":   {identifier: "EVID_100", raw: "--", field: registry.Pressure},
		"hours empty":           {identifier: "EVID_102", raw: "", field: registry.RunHours},
	}
	d := New(registry.Default())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			state, err := d.Decode(respBody(tt.identifier, tt.raw))
			assert.Nil(t, state)
			require.ErrorIs(t, err, ErrDecode)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.field, decodeErr.Field)
			assert.Equal(t, tt.identifier, decodeErr.Identifier)
			assert.Equal(t, tt.raw, decodeErr.Value)
		})
	}
}

func TestValue_Raw(t *testing.T) {
	v, err := Value(model.Raw("serial", "EVID_1"), " AB12 ")
	require.NoError(t, err)
	assert.Equal(t, " AB12 ", v)
}

func TestValue_BitmaskZeroNeverEmpty(t *testing.T) {
	for _, f := range registry.Default().Fields() {
		if f.Kind != model.DecodeBitmask {
			continue
		}
		v, err := Value(f, "0")
		require.NoError(t, err)
		assert.NotEmpty(t, v)
		assert.Equal(t, f.Fallback, v)
	}
}

func TestValue_EnumOutOfRangeAlwaysFails(t *testing.T) {
	f, err := registry.Default().Lookup(registry.PressureUnits)
	require.NoError(t, err)
	for i := len(f.Labels); i < len(f.Labels)+20; i++ {
		_, err := Value(f, fmt.Sprint(i))
		assert.ErrorIs(t, err, ErrDecode, "index %d", i)
	}
}
