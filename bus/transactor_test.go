package bus

import (
	"testing"

	"github.com/amken3d/jvs-host/protocol"
	"github.com/amken3d/jvs-host/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeReply(t *testing.T, dest byte, payload []byte) []byte {
	t.Helper()
	wire, err := protocol.Encode(dest, payload)
	require.NoError(t, err)
	return wire
}

func TestTransactSuccess(t *testing.T) {
	reply := encodeReply(t, protocol.BusMaster, []byte{protocol.StatusSuccess, protocol.ReportSuccess, 'S', 'E', 'G', 'A'})
	link := serial.NewMockLink(reply, 0)
	tr := NewTransactor(link)

	data, err := tr.Transact(0x01, []byte{protocol.CmdRequestID})
	require.NoError(t, err)
	assert.Equal(t, []byte{'S', 'E', 'G', 'A'}, data)
}

func TestTransactStatusFailure(t *testing.T) {
	reply := encodeReply(t, protocol.BusMaster, []byte{protocol.StatusUnsupported})
	link := serial.NewMockLink(reply, 0)
	tr := NewTransactor(link)

	_, err := tr.Transact(0x01, []byte{protocol.CmdRequestID})
	var busErr *Error
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, KindStatus, busErr.Kind)
	assert.Equal(t, protocol.StatusUnsupported, busErr.Code)
}

func TestTransactReportFailure(t *testing.T) {
	reply := encodeReply(t, protocol.BusMaster, []byte{protocol.StatusSuccess, protocol.ReportParamError1})
	link := serial.NewMockLink(reply, 0)
	tr := NewTransactor(link)

	_, err := tr.Transact(0x01, []byte{protocol.CmdRequestID})
	var busErr *Error
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, KindReport, busErr.Kind)
	assert.Equal(t, protocol.ReportParamError1, busErr.Code)
}

func TestTransactStrayPacket(t *testing.T) {
	reply := encodeReply(t, 0x02, []byte{protocol.StatusSuccess, protocol.ReportSuccess})
	link := serial.NewMockLink(reply, 0)
	tr := NewTransactor(link)

	_, err := tr.Transact(0x01, []byte{protocol.CmdRequestID})
	var busErr *Error
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, KindStrayPacket, busErr.Kind)
}

func TestTransactTimeout(t *testing.T) {
	link := serial.NewMockLink(nil, 0)
	tr := NewTransactor(link)

	_, err := tr.Transact(0x01, []byte{protocol.CmdRequestID})
	var busErr *Error
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, KindTimeout, busErr.Kind)
}

func TestTransactRetransmitAfterChecksum(t *testing.T) {
	// First reply is corrupted (its checksum byte is flipped); the
	// retransmit reply that follows is well formed.
	bad := encodeReply(t, protocol.BusMaster, []byte{protocol.StatusSuccess, protocol.ReportSuccess, 0x01})
	bad[len(bad)-1] ^= 0xFF // flip the checksum byte so the first decode fails

	good := encodeReply(t, protocol.BusMaster, []byte{protocol.StatusSuccess, protocol.ReportSuccess, 0x01})

	link := serial.NewMockLink(nil, 0)
	link.Feed(bad...)
	link.Feed(good...)
	tr := NewTransactor(link)

	data, err := tr.Transact(0x01, []byte{protocol.CmdCommandVersion})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, data)
}

func TestTransactMultiSplitsRecords(t *testing.T) {
	reply := encodeReply(t, protocol.BusMaster, []byte{
		protocol.StatusSuccess,
		protocol.ReportSuccess, 0x11,
		protocol.ReportSuccess, 0x12,
		protocol.ReportParamError1, 0x00,
	})
	link := serial.NewMockLink(reply, 0)
	tr := NewTransactor(link)

	results, err := tr.TransactMulti(0x01, []byte{protocol.CmdCommandVersion, protocol.CmdJVSVersion, protocol.CmdCommsVersion}, []int{1, 1, 1})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, CmdResult{Report: protocol.ReportSuccess, Data: []byte{0x11}}, results[0])
	assert.Equal(t, CmdResult{Report: protocol.ReportSuccess, Data: []byte{0x12}}, results[1])
	assert.Equal(t, CmdResult{Report: protocol.ReportParamError1, Data: []byte{0x00}}, results[2])
}

func TestTransactMultiStatusFailure(t *testing.T) {
	reply := encodeReply(t, protocol.BusMaster, []byte{protocol.StatusChecksumFailure})
	link := serial.NewMockLink(reply, 0)
	tr := NewTransactor(link)

	_, err := tr.TransactMulti(0x01, []byte{protocol.CmdCommandVersion}, []int{1})
	var busErr *Error
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, KindStatus, busErr.Kind)
}
