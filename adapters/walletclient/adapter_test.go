package walletclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientsdk "github.com/manifoldxyz/client-sdk-sub000"
)

const fakeAccount = "0x00000000000000000000000000000000000000A1"

const minedReceipt = `{
	"transactionHash": "0xabc1",
	"blockNumber": "0x64",
	"blockHash": "0xb10c",
	"gasUsed": "0x5208",
	"effectiveGasPrice": "0x3b9aca00",
	"status": "0x1",
	"from": "0x00000000000000000000000000000000000000a1",
	"logs": [{"address": "0x00000000000000000000000000000000000000b2", "topics": ["0x01"], "data": "0x"}]
}`

// fakeClient scripts the wire surface of a write-capable client.
// Receipt delivery is delayed by receiptAfter polls.
type fakeClient struct {
	chain        ChainInfo
	addresses    []string
	addressCalls int
	sendHash     string
	sendErr      error
	sent         []TxParams
	receipt      json.RawMessage
	receiptAfter int
	receiptPolls int
	blockNumber  string
	balance      string
	callResult   string
	requestErrs  map[string]error
	lastParams   map[string][]interface{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		chain:       ChainInfo{ID: 1, Name: "mainnet"},
		addresses:   []string{fakeAccount},
		sendHash:    "0xabc1",
		blockNumber: "0x66",
		balance:     "0x2a",
		// eth_call returns a full 32-byte ABI word, leading zeros and all.
		callResult: "0x" + strings.Repeat("0", 61) + "539",
		lastParams:  map[string][]interface{}{},
	}
}

func (c *fakeClient) Transport() string { return "http" }
func (c *fakeClient) Chain() ChainInfo  { return c.chain }
func (c *fakeClient) Mode() string      { return "wallet" }

func (c *fakeClient) Request(_ context.Context, method string, params []interface{}) (json.RawMessage, error) {
	c.lastParams[method] = params
	if err := c.requestErrs[method]; err != nil {
		return nil, err
	}
	switch method {
	case "eth_getTransactionReceipt":
		c.receiptPolls++
		if c.receipt == nil || c.receiptPolls <= c.receiptAfter {
			return json.RawMessage("null"), nil
		}
		return c.receipt, nil
	case "eth_blockNumber":
		return json.RawMessage(fmt.Sprintf("%q", c.blockNumber)), nil
	case "eth_getBalance":
		return json.RawMessage(fmt.Sprintf("%q", c.balance)), nil
	case "eth_call":
		return json.RawMessage(fmt.Sprintf("%q", c.callResult)), nil
	}
	return json.RawMessage("null"), nil
}

func (c *fakeClient) RequestAddresses(context.Context) ([]string, error) {
	c.addressCalls++
	return c.addresses, nil
}

func (c *fakeClient) SendTransaction(_ context.Context, params TxParams) (string, error) {
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.sent = append(c.sent, params)
	return c.sendHash, nil
}

func (c *fakeClient) SignMessage(context.Context, string, []byte) (string, error) {
	return "0x5167ed", nil
}

// switchingClient adds the native chain-switch capability.
type switchingClient struct {
	*fakeClient
	switchedTo []int64
	switchErr  error
}

func (c *switchingClient) SwitchChain(_ context.Context, chainID int64) error {
	if c.switchErr != nil {
		return c.switchErr
	}
	c.switchedTo = append(c.switchedTo, chainID)
	return nil
}

func newTestAdapter(t *testing.T, client WriteClient) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(client, WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return adapter
}

func mintRequest() clientsdk.TransactionRequest {
	return clientsdk.TransactionRequest{
		To:      "0x00000000000000000000000000000000000000B2",
		ChainID: 1,
		Value:   "1000000000000000",
		Data:    "0x1249c58b",
	}
}

func TestSendTransactionWithConfirmation(t *testing.T) {
	client := newFakeClient()
	client.receipt = json.RawMessage(minedReceipt)
	client.receiptAfter = 2
	adapter := newTestAdapter(t, client)

	response, err := adapter.SendTransactionWithConfirmation(context.Background(), mintRequest(),
		clientsdk.ConfirmationOptions{Confirmations: 3})
	require.NoError(t, err)
	require.NoError(t, response.Validate())
	assert.True(t, response.Mined())
	assert.Equal(t, "0xabc1", response.Hash)
	assert.Equal(t, uint64(100), *response.BlockNumber)
	assert.Equal(t, uint64(3), response.Confirmations)
	assert.Equal(t, "21000", response.GasUsed)
	assert.Equal(t, "1000000000", response.EffectiveGasPrice)
	require.Len(t, response.Logs, 1)

	// Quantities cross the wire as hex strings.
	require.Len(t, client.sent, 1)
	assert.Equal(t, fakeAccount, client.sent[0].From)
	assert.Equal(t, "0x38d7ea4c68000", client.sent[0].Value)
	assert.Equal(t, "0x1249c58b", client.sent[0].Data)
}

func TestSendTransactionUserRejected(t *testing.T) {
	client := newFakeClient()
	client.sendErr = &RPCError{Code: CodeUserRejected, Message: "User rejected the request."}
	adapter := newTestAdapter(t, client)

	_, err := adapter.SendTransaction(context.Background(), mintRequest())
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeTransactionRejected))
}

func TestSendTransactionChainMismatch(t *testing.T) {
	adapter := newTestAdapter(t, newFakeClient())

	request := mintRequest()
	request.ChainID = 8453
	_, err := adapter.SendTransaction(context.Background(), request)
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeUnsupportedNetwork))
}

func TestConfirmationSurfacesRevert(t *testing.T) {
	client := newFakeClient()
	reverted := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(minedReceipt), &reverted))
	reverted["status"] = "0x0"
	raw, err := json.Marshal(reverted)
	require.NoError(t, err)
	client.receipt = raw
	adapter := newTestAdapter(t, client)

	_, err = adapter.SendTransactionWithConfirmation(context.Background(), mintRequest(),
		clientsdk.ConfirmationOptions{Confirmations: 1})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeTransactionFailed))
	assert.Contains(t, err.Error(), "reverted")
}

func TestConfirmationWaitTimesOut(t *testing.T) {
	client := newFakeClient()
	// Receipt never materializes.
	adapter := newTestAdapter(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	_, err := adapter.SendTransactionWithConfirmation(ctx, mintRequest(), clientsdk.ConfirmationOptions{})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeTimeout))
}

// A head that trails the receipt's block must keep the wait polling; a
// wrapped depth would otherwise satisfy any requested confirmation
// count instantly.
func TestConfirmationWaitToleratesLaggingHead(t *testing.T) {
	client := newFakeClient()
	client.receipt = json.RawMessage(minedReceipt) // mined at 0x64
	client.blockNumber = "0x62"
	adapter := newTestAdapter(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	_, err := adapter.SendTransactionWithConfirmation(ctx, mintRequest(),
		clientsdk.ConfirmationOptions{Confirmations: 12})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeTimeout))
}

func TestGetAddressCachesResolution(t *testing.T) {
	client := newFakeClient()
	adapter := newTestAdapter(t, client)

	address, err := adapter.GetAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeAccount, address)

	_, err = adapter.GetAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, client.addressCalls)
}

func TestGetAddressNoAccounts(t *testing.T) {
	client := newFakeClient()
	client.addresses = nil
	adapter := newTestAdapter(t, client)

	_, err := adapter.GetAddress(context.Background())
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeInitializationFailed))
}

func TestGetBalance(t *testing.T) {
	client := newFakeClient()
	adapter := newTestAdapter(t, client)

	native, err := adapter.GetBalance(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, "42", native)

	token, err := adapter.GetBalance(context.Background(), 1, "0x00000000000000000000000000000000000000C3")
	require.NoError(t, err)
	assert.Equal(t, "1337", token)

	client.callResult = "0x" + strings.Repeat("0", 64)
	zero, err := adapter.GetBalance(context.Background(), 1, "0x00000000000000000000000000000000000000C3")
	require.NoError(t, err)
	assert.Equal(t, "0", zero)

	params := client.lastParams["eth_call"]
	require.Len(t, params, 2)
	call := params[0].(map[string]interface{})
	assert.Equal(t,
		"0x70a08231"+strings.Repeat("0", 24)+"00000000000000000000000000000000000000a1",
		call["data"])

	_, err = adapter.GetBalance(context.Background(), 8453, "")
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeUnsupportedNetwork))
}

func TestSwitchNetworkViaRPC(t *testing.T) {
	client := newFakeClient()
	adapter := newTestAdapter(t, client)

	require.NoError(t, adapter.SwitchNetwork(context.Background(), 8453))
	params := client.lastParams["wallet_switchEthereumChain"]
	require.Len(t, params, 1)
	assert.Equal(t, map[string]string{"chainId": "0x2105"}, params[0])
}

func TestSwitchNetworkNativeCapability(t *testing.T) {
	client := &switchingClient{fakeClient: newFakeClient()}
	adapter := newTestAdapter(t, client)

	require.NoError(t, adapter.SwitchNetwork(context.Background(), 8453))
	assert.Equal(t, []int64{8453}, client.switchedTo)
	assert.Nil(t, client.lastParams["wallet_switchEthereumChain"])
}

func TestSwitchNetworkErrorMapping(t *testing.T) {
	rejected := &switchingClient{
		fakeClient: newFakeClient(),
		switchErr:  &RPCError{Code: CodeUserRejected, Message: "User rejected the request."},
	}
	err := newTestAdapter(t, rejected).SwitchNetwork(context.Background(), 8453)
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeNetworkSwitchRejected))

	unknown := &switchingClient{
		fakeClient: newFakeClient(),
		switchErr:  &RPCError{Code: CodeUnrecognizedChain, Message: "Unrecognized chain ID."},
	}
	err = newTestAdapter(t, unknown).SwitchNetwork(context.Background(), 999999)
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeUnsupportedNetwork))
}

func TestSignMessage(t *testing.T) {
	adapter := newTestAdapter(t, newFakeClient())

	signature, err := adapter.SignMessage(context.Background(), []byte("gm"))
	require.NoError(t, err)
	assert.Equal(t, "0x5167ed", signature)
}

func TestSignTypedDataUnsupported(t *testing.T) {
	adapter := newTestAdapter(t, newFakeClient())

	_, err := adapter.SignTypedData(context.Background(), clientsdk.TypedDataPayload{})
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeUnsupportedProvider))
}

func TestSendCalls(t *testing.T) {
	client := newFakeClient()
	adapter := newTestAdapter(t, client)

	result, err := adapter.SendCalls(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, "0x66", result)

	client.requestErrs = map[string]error{
		"wallet_sendCalls": &RPCError{Code: CodeUnsupportedMethod, Message: "Unsupported method."},
	}
	_, err = adapter.SendCalls(context.Background(), "wallet_sendCalls", nil)
	require.Error(t, err)
	assert.True(t, clientsdk.IsCode(err, clientsdk.ErrCodeTransactionFailed))
}
