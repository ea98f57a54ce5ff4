package ethsigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

// KeySigner implements SignerV2 using a raw ECDSA private key and a
// bound provider. It is the in-process signer used by callers that
// custody their own key (tests, backends, bots) rather than a wallet
// extension.
type KeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	provider   ProviderV2
}

// NewKeySignerFromPrivateKey creates a signer from a hex-encoded
// private key (with or without "0x" prefix) and a provider.
func NewKeySignerFromPrivateKey(privateKeyHex string, provider ProviderV2) (*KeySigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeInitializationFailed, "invalid private key", err)
	}
	if provider == nil {
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeInitializationFailed,
			"key signer requires a provider", nil)
	}
	return &KeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		provider:   provider,
	}, nil
}

// Address returns the address derived from the key.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// Provider returns the bound provider.
func (s *KeySigner) Provider() ProviderV2 {
	return s.provider
}

// SignTx signs a native transaction for the given chain.
func (s *KeySigner) SignTx(_ context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.privateKey)
}

// SignMessage signs with the EIP-191 personal-message prefix.
func (s *KeySigner) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(message), s.privateKey)
	if err != nil {
		return nil, err
	}
	signature[64] += 27
	return signature, nil
}

// SignTypedData signs EIP-712 typed data.
func (s *KeySigner) SignTypedData(_ context.Context, payload clientsdk.TypedDataPayload) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: payload.PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              payload.Domain.Name,
			Version:           payload.Domain.Version,
			ChainId:           (*math.HexOrDecimal256)(payload.Domain.ChainID),
			VerifyingContract: payload.Domain.VerifyingContract,
		},
		Message: payload.Message,
	}
	for typeName, fields := range payload.Types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types[typeName] = typedFields
	}
	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}

	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	// EIP-712 digest: 0x19 0x01 <domainSeparator> <dataHash>
	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)
	digest := crypto.Keccak256(rawData)

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27
	return signature, nil
}
