package evm

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/swiftshopr/sdk-go/pkg/retry"
	"github.com/swiftshopr/sdk-go/pkg/retry/backoff"
)

const (
	// RequestTimeout bounds every individual RPC request. Endpoint failover
	// happens above this client, so a slow node must not hold up the fallback
	// sequence.
	RequestTimeout = 10 * time.Second

	receiptStatusSuccess = "0x1"
)

var (
	ErrNoResult        = errors.New("no result")
	ErrReceiptNotFound = errors.New("transaction receipt not found")
	errRateLimited     = errors.New("rate limited")
	errServiceError    = errors.New("service error")
)

// Client provides read access to an EVM chain over the JSON RPC API.
type Client interface {
	// GetTokenBalance reads an ERC-20 balance via eth_call against the
	// token contract.
	GetTokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// GetTransactionConfirmed reports whether a transaction has been mined
	// successfully. ErrReceiptNotFound is returned while the transaction is
	// still pending.
	GetTransactionConfirmed(ctx context.Context, txHash string) (bool, error)
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
}

// NewClient returns a client using the specified endpoint.
func NewClient(endpoint string) Client {
	return &client{
		log: logrus.StandardLogger().WithField("type", "evm/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{
				Timeout: RequestTimeout,
			},
		}),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

type callParams struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

type transactionReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
}

func (c *client) GetTokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	calldata, err := PackBalanceOf(owner)
	if err != nil {
		return nil, err
	}

	var result string
	err = c.call(&result, "eth_call", callParams{
		To:   token.Hex(),
		Data: hexutil.Encode(calldata),
	}, "latest")
	if err != nil {
		return nil, errors.Wrap(err, "error executing eth_call")
	}

	if len(result) == 0 {
		return nil, ErrNoResult
	}

	raw, err := hexutil.Decode(result)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding eth_call result")
	}
	return UnpackBalanceOf(raw)
}

func (c *client) GetTransactionConfirmed(ctx context.Context, txHash string) (bool, error) {
	var receipt *transactionReceipt
	err := c.call(&receipt, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return false, errors.Wrap(err, "error fetching transaction receipt")
	}

	if receipt == nil || len(receipt.BlockNumber) == 0 {
		return false, ErrReceiptNotFound
	}

	return receipt.Status == receiptStatusSuccess, nil
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(func() error {
		err := c.client.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		return c.handleRpcError(method, err)
	})

	return err
}

func (c *client) handleRpcError(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == 429 {
		c.log.WithField("method", method).Error("rate limited")
		return errRateLimited
	}
	if rpcErr.Code >= 500 {
		return errServiceError
	}

	return err
}
