package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenches/ip-venue/internal/domain"
)

func wei(tokens float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(tokens), weiScale)
	v, _ := f.Int(nil)
	return v
}

func packVaultLog(t *testing.T, name string, signature common.Hash, wallet common.Address, ipID string, amountTokens, amountQuote *big.Int) types.Log {
	t.Helper()

	data, err := vaultABI.Events[name].Inputs.NonIndexed().Pack(
		ipID, amountTokens, amountQuote, big.NewInt(1_700_000_000),
	)
	require.NoError(t, err)

	return types.Log{
		Topics:      []common.Hash{signature, common.BytesToHash(wallet.Bytes())},
		Data:        data,
		TxHash:      common.HexToHash("0xdeadbeef"),
		BlockNumber: 1234,
	}
}

func TestParseVaultLogBuy(t *testing.T) {
	wallet := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	vLog := packVaultLog(t, "Buy", buyEventSignature, wallet, "ip-42", wei(10), wei(1.51))

	event, err := ParseVaultLog(vLog)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.EventKindBuy, event.Kind)
	assert.Equal(t, "ip-42", event.AssetID)
	assert.Equal(t, wallet.Hex(), event.Wallet)
	assert.Equal(t, vLog.TxHash.Hex(), event.TxHash)
	assert.Equal(t, uint64(1234), event.BlockNumber)
	assert.InDelta(t, 10.0, event.AmountTokens, 1e-9)
	assert.InDelta(t, 1.51, event.AmountQuote, 1e-9)
}

func TestParseVaultLogSell(t *testing.T) {
	wallet := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	vLog := packVaultLog(t, "Sell", sellEventSignature, wallet, "ip-7", wei(5), wei(0.755))

	event, err := ParseVaultLog(vLog)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.EventKindSell, event.Kind)
	assert.Equal(t, "ip-7", event.AssetID)
	assert.InDelta(t, 5.0, event.AmountTokens, 1e-9)
	assert.InDelta(t, 0.755, event.AmountQuote, 1e-9)
}

func TestParseVaultLogIgnoresForeignEvents(t *testing.T) {
	vLog := types.Log{
		Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}

	event, err := ParseVaultLog(vLog)
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestParseVaultLogRejectsMalformedLogs(t *testing.T) {
	t.Run("no topics", func(t *testing.T) {
		_, err := ParseVaultLog(types.Log{})
		assert.Error(t, err)
	})

	t.Run("missing user topic", func(t *testing.T) {
		_, err := ParseVaultLog(types.Log{
			Topics: []common.Hash{buyEventSignature},
		})
		assert.Error(t, err)
	})

	t.Run("garbage data", func(t *testing.T) {
		_, err := ParseVaultLog(types.Log{
			Topics: []common.Hash{buyEventSignature, {}},
			Data:   []byte{0x01, 0x02},
		})
		assert.Error(t, err)
	})
}

func TestWeiToFloat(t *testing.T) {
	assert.Equal(t, 0.0, weiToFloat(big.NewInt(0)))
	assert.InDelta(t, 1.0, weiToFloat(wei(1)), 1e-9)
	assert.InDelta(t, 0.101, weiToFloat(wei(0.101)), 1e-9)
}
