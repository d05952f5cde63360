package http2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettingsApplyMergesOnlyPresent(t *testing.T) {
	dst := &Settings{}
	dst.SetMaxStreams(50)
	dst.SetMaxWindowSize(1000)

	// A later SETTINGS frame only touches INITIAL_WINDOW_SIZE; everything
	// else dst already knows must survive untouched.
	update := &Settings{}
	update.SetMaxWindowSize(2000)

	update.Apply(dst)

	require.EqualValues(t, 2000, dst.MaxWindowSize())
	require.EqualValues(t, 50, dst.MaxStreams(), "fields absent from the update frame must not be reset")
}

func TestSettingsSerializeDeserializeRoundTrip(t *testing.T) {
	st := &Settings{}
	st.SetMaxStreams(128)
	st.SetMaxWindowSize(65535)
	st.SetPush(false)
	st.SetMaxFrameSize(defaultMaxFrameSize)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetBody(st)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := fr.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	br := bufio.NewReader(&buf)
	got, err := ReadFrameFrom(br)
	require.NoError(t, err)
	defer ReleaseFrameHeader(got)

	require.Equal(t, FrameSettings, got.Type())

	got2 := got.Body().(*Settings)
	require.EqualValues(t, 128, got2.MaxStreams())
	require.EqualValues(t, 65535, got2.MaxWindowSize())
	require.False(t, got2.Push())
}

func TestSettingsAckHasEmptyPayload(t *testing.T) {
	st := &Settings{}
	st.SetAck(true)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetBody(st)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := fr.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	br := bufio.NewReader(&buf)
	got, err := ReadFrameFrom(br)
	require.NoError(t, err)
	defer ReleaseFrameHeader(got)

	require.True(t, got.Body().(*Settings).IsAck())
	require.Equal(t, 0, got.Len())
}

func TestSettingsRejectsOversizedInitialWindow(t *testing.T) {
	st := &Settings{}
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	fr.length = 6
	fr.payload = append(fr.payload[:0],
		0x0, byte(settingInitialWindowSize),
		0xff, 0xff, 0xff, 0xff,
	)

	err := st.Deserialize(fr)
	require.Error(t, err)

	var connErr *ConnError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, FlowControlError, connErr.Code)
}
