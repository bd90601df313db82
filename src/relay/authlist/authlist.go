// Package authlist validates EIP-7702-style authorization lists attached
// to a send-transaction request, grounded on the RLP list shape spec.md
// §6 and the original source's validate_authorization_list describe.
package authlist

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/relayx/relayer/src/relay"
)

// magic is the EIP-7702 authorization-hash domain separator: the hash
// signed by an authority is keccak256(0x05 || rlp([chainId, address, nonce])).
const magic = byte(0x05)

// signedAuthorization is the RLP shape of one list entry:
// [chain_id, address, nonce, y_parity, r, s].
type signedAuthorization struct {
	ChainID *big.Int
	Address common.Address
	Nonce   uint64
	YParity uint8
	R       *big.Int
	S       *big.Int
}

// Validate checks a hex-encoded, RLP-canonical authorization list
// against chainID and contractAddress. An empty string is valid (no
// authorization list was supplied). Every other failure mode — bad hex,
// bad RLP, an empty decoded list, a chain/address mismatch, or a
// non-recoverable signature — is reported as InvalidSignature, matching
// the source's single error class for this whole validation step.
func Validate(authorizationList string, chainID uint64, contractAddress common.Address) error {
	trimmed := strings.TrimSpace(authorizationList)
	if trimmed == "" {
		return nil
	}

	body := strings.TrimPrefix(trimmed, "0x")
	if body == "" {
		log.Warn("authorization list provided without payload")
		return relay.ErrInvalidSignature("authorization list provided without payload")
	}

	raw, err := hex.DecodeString(body)
	if err != nil {
		log.Warn("failed to hex-decode authorization list", "err", err)
		return relay.ErrInvalidSignature("authorization list is not valid hex")
	}

	var authorizations []signedAuthorization
	if err := rlp.DecodeBytes(raw, &authorizations); err != nil {
		log.Warn("failed to decode authorization list RLP", "err", err)
		return relay.ErrInvalidSignature("authorization list is not valid RLP")
	}
	if len(authorizations) == 0 {
		log.Warn("authorization list decoded to empty set")
		return relay.ErrInvalidSignature("authorization list is empty")
	}

	for _, auth := range authorizations {
		authChain := auth.ChainID.Uint64()
		if authChain != 0 && authChain != chainID {
			log.Warn("authorization chain mismatch", "expected", chainID, "found", authChain)
			return relay.ErrInvalidSignature("authorization chain id does not match")
		}
		if auth.Address != contractAddress {
			log.Warn("authorization target mismatch", "expected", contractAddress, "found", auth.Address)
			return relay.ErrInvalidSignature("authorization target does not match")
		}
		if _, err := recoverAuthority(auth); err != nil {
			log.Warn("failed to recover authority from authorization", "err", err)
			return relay.ErrInvalidSignature("authorization signature does not recover")
		}
	}
	return nil
}

// recoverAuthority reconstructs the EIP-7702 authorization hash and
// recovers the signing address from (r, s, yParity).
func recoverAuthority(auth signedAuthorization) (common.Address, error) {
	sigHash, err := authorizationHash(auth.ChainID, auth.Address, auth.Nonce)
	if err != nil {
		return common.Address{}, err
	}

	if auth.YParity > 1 {
		return common.Address{}, fmt.Errorf("y_parity out of range: %d", auth.YParity)
	}
	sig := make([]byte, 65)
	auth.R.FillBytes(sig[0:32])
	auth.S.FillBytes(sig[32:64])
	sig[64] = auth.YParity

	pub, err := crypto.SigToPub(sigHash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// authorizationHash implements keccak256(0x05 || rlp([chainId, address, nonce])).
func authorizationHash(chainID *big.Int, address common.Address, nonce uint64) ([]byte, error) {
	body, err := rlp.EncodeToBytes([]interface{}{chainID, address, nonce})
	if err != nil {
		return nil, fmt.Errorf("encode authorization body: %w", err)
	}
	return crypto.Keccak256(append([]byte{magic}, body...)), nil
}
