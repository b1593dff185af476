package jsonrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	req, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.NoError(t, err)
	r, ok := req.(*Request)
	require.True(t, ok)
	assert.Equal(t, "ping", r.Method)
	n, isInt := r.ID.Int64()
	assert.True(t, isInt)
	assert.Equal(t, int64(1), n)

	notif, err := Decode([]byte(`{"jsonrpc":"2.0","method":"notifications/cancelled"}`))
	require.NoError(t, err)
	_, ok = notif.(*Notification)
	assert.True(t, ok)

	resp, err := Decode([]byte(`{"jsonrpc":"2.0","id":"abc","result":null}`))
	require.NoError(t, err)
	rr, ok := resp.(*Response)
	require.True(t, ok)
	assert.Equal(t, "abc", rr.ID.String())

	errResp, err := Decode([]byte(`{"jsonrpc":"2.0","id":2,"error":{"code":-32601,"message":"not found"}}`))
	require.NoError(t, err)
	er, ok := errResp.(*ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, CodeMethodNotFound, er.Error.Code)
}

func TestDecodeRejectsMalformedAndAmbiguous(t *testing.T) {
	_, err := Decode([]byte(`{"id":1}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"jsonrpc":"2.0","id":1}`))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	req := &Request{ID: NewIntID(7), Method: "tools/call", Params: []byte(`{"name":"add"}`)}
	data, err := Encode(req)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	got, ok := decoded.(*Request)
	require.True(t, ok)
	assert.Equal(t, req.Method, got.Method)
	n, isInt := got.ID.Int64()
	assert.True(t, isInt)
	assert.Equal(t, int64(7), n)
}

func TestEncodeRejectsInvalidID(t *testing.T) {
	_, err := Encode(&Request{Method: "ping"})
	assert.Error(t, err)
}

func TestRequestIDEqualityIsTypeAware(t *testing.T) {
	assert.False(t, NewStringID("5").Equal(NewIntID(5)))
	assert.True(t, NewIntID(5).Equal(NewIntID(5)))
	assert.True(t, NewStringID("x").Equal(NewStringID("x")))
}
