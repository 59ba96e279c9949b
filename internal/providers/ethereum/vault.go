package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trenches/ip-venue/internal/domain"
)

// Vault contract event fragments. Amount fields are 10^18 fixed-point.
const vaultABIJSON = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"address","name":"user","type":"address"},
		{"indexed":false,"internalType":"string","name":"ipId","type":"string"},
		{"indexed":false,"internalType":"uint256","name":"amountTokens","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"amountPaid","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}],
	 "name":"Buy","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"address","name":"user","type":"address"},
		{"indexed":false,"internalType":"string","name":"ipId","type":"string"},
		{"indexed":false,"internalType":"uint256","name":"amountTokens","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"amountReceived","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}],
	 "name":"Sell","type":"event"}
]`

// Event signatures
var (
	buyEventSignature  = crypto.Keccak256Hash([]byte("Buy(address,string,uint256,uint256,uint256)"))
	sellEventSignature = crypto.Keccak256Hash([]byte("Sell(address,string,uint256,uint256,uint256)"))
)

var vaultABI = mustParseVaultABI()

func mustParseVaultABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid vault ABI: %v", err))
	}
	return parsed
}

// weiScale is the fixed-point scale of the contract's amount fields
var weiScale = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// weiToFloat converts a 10^18 fixed-point integer to the engine's real unit
func weiToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), weiScale).Float64()
	return f
}

// ParseVaultLog decodes a raw vault log into a normalized event. Returns
// (nil, nil) for logs that are neither Buy nor Sell.
func ParseVaultLog(vLog types.Log) (*domain.VaultEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, fmt.Errorf("log has no topics")
	}

	var kind domain.EventKind
	var name string
	switch vLog.Topics[0] {
	case buyEventSignature:
		kind, name = domain.EventKindBuy, "Buy"
	case sellEventSignature:
		kind, name = domain.EventKindSell, "Sell"
	default:
		return nil, nil
	}

	if len(vLog.Topics) != 2 {
		return nil, fmt.Errorf("invalid %s event: expected 2 topics, got %d", name, len(vLog.Topics))
	}

	// Non-indexed args: ipId, amountTokens, amountPaid/amountReceived, timestamp
	unpacked, err := vaultABI.Unpack(name, vLog.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s event data: %w", name, err)
	}
	if len(unpacked) != 4 {
		return nil, fmt.Errorf("invalid %s event: expected 4 data fields, got %d", name, len(unpacked))
	}

	assetID, ok := unpacked[0].(string)
	if !ok || assetID == "" {
		return nil, fmt.Errorf("invalid %s event: missing ipId", name)
	}
	amountTokens, ok := unpacked[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("invalid %s event: bad amountTokens", name)
	}
	amountQuote, ok := unpacked[2].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("invalid %s event: bad amount field", name)
	}

	return &domain.VaultEvent{
		Kind:         kind,
		TxHash:       vLog.TxHash.Hex(),
		Wallet:       common.BytesToAddress(vLog.Topics[1].Bytes()).Hex(),
		AssetID:      assetID,
		AmountTokens: weiToFloat(amountTokens),
		AmountQuote:  weiToFloat(amountQuote),
		BlockNumber:  vLog.BlockNumber,
	}, nil
}
