// Package submitter implements the Submitter: a pure sign-and-broadcast
// operation with no store access of its own (spec.md §4.F).
package submitter

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/relayx/relayer/src/relay"
	"github.com/relayx/relayer/src/relay/rpcclient"
)

// Submitter signs and broadcasts legacy transactions against whatever
// chain the caller names, using one signer key for every chain.
type Submitter struct {
	pool    rpcclient.Dialer
	priv    *ecdsa.PrivateKey
	address common.Address
}

// New parses signerKeyHex (a 0x-prefixed or bare secp256k1 private key)
// once and returns a Submitter bound to pool for nonce/broadcast calls.
func New(pool rpcclient.Dialer, signerKeyHex string) (*Submitter, error) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(signerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return &Submitter{
		pool:    pool,
		priv:    priv,
		address: crypto.PubkeyToAddress(priv.PublicKey),
	}, nil
}

// Address returns the relayer's own address, derived from the signer key.
func (s *Submitter) Address() common.Address { return s.address }

// Broadcast signs and sends a legacy transaction: to/data/chainId/
// gasLimit/gasPriceWeiHex in, the broadcast tx hash and the nonce it
// consumed out. It never reads or writes the Store; the caller persists
// the nonce if it cares to (spec.md §3, "nonce observed at broadcast").
func (s *Submitter) Broadcast(ctx context.Context, to string, data []byte, chainID uint64, gasLimit uint64, gasPriceWeiHex string) (common.Hash, uint64, error) {
	client, err := s.pool.Dial(ctx, chainID)
	if err != nil {
		return common.Hash{}, 0, relay.ErrInternal("no chain client available", err)
	}

	nonce, err := client.NonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, 0, relay.ErrInternal("failed to read relayer nonce", err)
	}

	gasPrice, ok := new(big.Int).SetString(strings.TrimPrefix(gasPriceWeiHex, "0x"), 16)
	if !ok {
		return common.Hash{}, 0, relay.ErrInternal("invalid gas price hex: "+gasPriceWeiHex, nil)
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signer := types.NewEIP155Signer(new(big.Int).SetUint64(chainID))
	signedTx, err := types.SignTx(tx, signer, s.priv)
	if err != nil {
		return common.Hash{}, 0, relay.ErrInternal("failed to sign transaction", err)
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return common.Hash{}, 0, relay.ErrInternal("failed to encode signed transaction", err)
	}

	hash, err := client.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, 0, relay.ErrInternal("broadcast failed", err)
	}
	return hash, nonce, nil
}
