package submitter

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayx/relayer/src/relay/rpcclient"
)

type fakeDialer struct{ client rpcclient.Client }

func (d fakeDialer) Dial(ctx context.Context, chainID uint64) (rpcclient.Client, error) {
	return d.client, nil
}

func testKeyHex(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.Bytes2Hex(crypto.FromECDSA(key))
}

func TestNewDerivesAddressFromKey(t *testing.T) {
	s, err := New(fakeDialer{client: rpcclient.NewStub()}, testKeyHex(t))
	require.NoError(t, err)
	assert.NotEqual(t, "0x0000000000000000000000000000000000000000", s.Address().Hex())
}

func TestNewRejectsMalformedKey(t *testing.T) {
	_, err := New(fakeDialer{client: rpcclient.NewStub()}, "not-hex")
	require.Error(t, err)
}

func TestBroadcastSignsAndSendsLegacyTx(t *testing.T) {
	s, err := New(fakeDialer{client: rpcclient.NewStub()}, testKeyHex(t))
	require.NoError(t, err)

	hash, nonce, err := s.Broadcast(context.Background(), "0x1111111111111111111111111111111111111111", []byte{0xde, 0xad}, 1, 21000, "0x4a817c800")
	require.NoError(t, err)
	assert.NotEqual(t, "0x0000000000000000000000000000000000000000000000000000000000000000", hash.Hex())
	assert.Equal(t, uint64(0), nonce)
}

func TestBroadcastRejectsBadGasPriceHex(t *testing.T) {
	s, err := New(fakeDialer{client: rpcclient.NewStub()}, testKeyHex(t))
	require.NoError(t, err)

	_, _, err = s.Broadcast(context.Background(), "0x1111111111111111111111111111111111111111", []byte{0xde, 0xad}, 1, 21000, "not-hex")
	require.Error(t, err)
}
