package adapters

import (
	"fmt"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
	"github.com/manifoldxyz/client-sdk-sub000/adapters/ethsigner"
	"github.com/manifoldxyz/client-sdk-sub000/adapters/walletclient"
)

// FromSignerV1 wraps a known legacy signer. Always preferred over
// detection when the caller knows its library.
func FromSignerV1(signer ethsigner.SignerV1, opts ...ethsigner.Option) (clientsdk.AccountAdapter, error) {
	return ethsigner.NewAdapterV1(signer, opts...)
}

// FromSignerV2 wraps a known current-generation signer.
func FromSignerV2(signer ethsigner.SignerV2, opts ...ethsigner.Option) (clientsdk.AccountAdapter, error) {
	return ethsigner.NewAdapterV2(signer, opts...)
}

// FromWalletClient wraps a known write-capable wallet client.
func FromWalletClient(client walletclient.WriteClient, opts ...walletclient.Option) (clientsdk.AccountAdapter, error) {
	return walletclient.NewAdapter(client, opts...)
}

// NewAdapter resolves an opaque wallet object through detection and
// constructs the matching adapter. Failure modes:
// unsupported_provider when the object matches nothing,
// detection_failed when confidence stays below the threshold, and
// initialization_failed when the concrete constructor itself rejects
// the object.
func NewAdapter(object interface{}, opts ...DetectOption) (clientsdk.AccountAdapter, error) {
	result := Detect(object, opts...)
	if result.Matched == "" {
		if len(result.Features) == 0 {
			return nil, clientsdk.NewClientError(clientsdk.ErrCodeUnsupportedProvider,
				"object matches no supported wallet library", nil)
		}
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeDetectionFailed,
			fmt.Sprintf("ambiguous wallet object: confidence %.2f below threshold", result.Confidence),
			map[string]interface{}{
				"confidence": result.Confidence,
				"features":   result.Features,
			})
	}

	switch result.Matched {
	case clientsdk.AdapterTypeSignerV1:
		signer, ok := object.(ethsigner.SignerV1)
		if !ok {
			return nil, initializationMismatch(result)
		}
		adapter, err := ethsigner.NewAdapterV1(signer)
		return wrapConstruction(adapter, err)
	case clientsdk.AdapterTypeSignerV2:
		signer, ok := object.(ethsigner.SignerV2)
		if !ok {
			return nil, initializationMismatch(result)
		}
		adapter, err := ethsigner.NewAdapterV2(signer)
		return wrapConstruction(adapter, err)
	case clientsdk.AdapterTypeWalletClient:
		client, ok := object.(walletclient.WriteClient)
		if !ok {
			return nil, initializationMismatch(result)
		}
		adapter, err := walletclient.NewAdapter(client)
		return wrapConstruction(adapter, err)
	default:
		return nil, clientsdk.NewClientError(clientsdk.ErrCodeDetectionFailed,
			fmt.Sprintf("detector produced unknown type %q", result.Matched), nil)
	}
}

// initializationMismatch covers objects that score on a family's
// markers without carrying its full required surface.
func initializationMismatch(result DetectionResult) error {
	return clientsdk.NewClientError(clientsdk.ErrCodeInitializationFailed,
		fmt.Sprintf("object matched %s but lacks its required surface", result.Matched),
		map[string]interface{}{
			"confidence": result.Confidence,
			"features":   result.Features,
		})
}

func wrapConstruction(adapter clientsdk.AccountAdapter, err error) (clientsdk.AccountAdapter, error) {
	if err != nil {
		return nil, clientsdk.WrapError(clientsdk.ErrCodeInitializationFailed,
			"adapter construction failed", err)
	}
	return adapter, nil
}
