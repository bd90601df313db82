package authlist

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signAuthorization(t *testing.T, chainID *big.Int, addr common.Address, nonce uint64) signedAuthorization {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	h, err := authorizationHash(chainID, addr, nonce)
	require.NoError(t, err)

	sig, err := crypto.Sign(h, key)
	require.NoError(t, err)

	return signedAuthorization{
		ChainID: chainID,
		Address: addr,
		Nonce:   nonce,
		YParity: sig[64],
		R:       new(big.Int).SetBytes(sig[0:32]),
		S:       new(big.Int).SetBytes(sig[32:64]),
	}
}

func encodeList(t *testing.T, list []signedAuthorization) string {
	t.Helper()
	raw, err := rlp.EncodeToBytes(list)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(raw)
}

func TestValidateEmptyStringIsValid(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	assert.NoError(t, Validate("", 1, contract))
	assert.NoError(t, Validate("   ", 1, contract))
}

func TestValidateAcceptsCorrectlySignedAuthorization(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	auth := signAuthorization(t, big.NewInt(1), contract, 0)
	list := encodeList(t, []signedAuthorization{auth})
	assert.NoError(t, Validate(list, 1, contract))
}

func TestValidateAcceptsChainIDZeroAsWildcard(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	auth := signAuthorization(t, big.NewInt(0), contract, 0)
	list := encodeList(t, []signedAuthorization{auth})
	assert.NoError(t, Validate(list, 42, contract))
}

func TestValidateRejectsChainMismatch(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	auth := signAuthorization(t, big.NewInt(5), contract, 0)
	list := encodeList(t, []signedAuthorization{auth})
	err := Validate(list, 1, contract)
	require.Error(t, err)
}

func TestValidateRejectsAddressMismatch(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	other := common.HexToAddress("0xbbbb000000000000000000000000000000bbbb")
	auth := signAuthorization(t, big.NewInt(1), other, 0)
	list := encodeList(t, []signedAuthorization{auth})
	err := Validate(list, 1, contract)
	require.Error(t, err)
}

func TestValidateRejectsBadHex(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	err := Validate("0xzzzz", 1, contract)
	require.Error(t, err)
}

func TestValidateRejectsEmptyDecodedList(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	list := encodeList(t, []signedAuthorization{})
	err := Validate(list, 1, contract)
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangeYParity(t *testing.T) {
	contract := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	auth := signAuthorization(t, big.NewInt(1), contract, 0)
	auth.YParity = 2 // only 0/1 are valid recovery ids
	list := encodeList(t, []signedAuthorization{auth})
	err := Validate(list, 1, contract)
	require.Error(t, err)
}
