package browse

import (
	"testing"

	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSourceOverDaemon(t *testing.T) {
	t.Parallel()

	daemon := test.NewFakeDaemon(t, test.Script(map[string]test.Reply{
		"host:devices":                 test.Okay("emulator-5554\tsdk\n"),
		"host:transport:emulator-5554": test.Status("OKAY"),
		"shell:getprop":                test.OkayStream("[ro.build.version]: [14]\n"),
	}))
	source := SessionSource{Options: adb.Options{Address: daemon.Addr()}}
	ctx := test.Context(t)

	records, err := source.ListDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []adb.DeviceRecord{{Serial: "emulator-5554", Model: "sdk"}}, records)

	props, err := source.Properties(ctx, "emulator-5554")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ro.build.version": "14"}, props)

	_, err = source.Properties(ctx, "missing")
	var notFound *adb.DeviceNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
