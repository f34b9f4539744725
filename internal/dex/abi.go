package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const swapTaxABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "token", "type": "address"},
      {"indexed": false, "name": "amount", "type": "uint256"}
    ],
    "name": "SwapTax",
    "type": "event"
  }
]`

const factoryABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "tokenA", "type": "address"},
      {"internalType": "address", "name": "tokenB", "type": "address"},
      {"internalType": "bool", "name": "stable", "type": "bool"}
    ],
    "name": "getPool",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const poolABIJSON = `[
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint256", "name": "_reserve0", "type": "uint256"},
      {"internalType": "uint256", "name": "_reserve1", "type": "uint256"},
      {"internalType": "uint256", "name": "_blockTimestampLast", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token0",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	swapTaxABI     abi.ABI
	swapTaxABIOnce sync.Once
	swapTaxABIErr  error

	factoryABI     abi.ABI
	factoryABIOnce sync.Once
	factoryABIErr  error

	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

// SwapTaxABI returns the parsed tax-swap event ABI.
func SwapTaxABI() (abi.ABI, error) {
	swapTaxABIOnce.Do(func() {
		swapTaxABI, swapTaxABIErr = abi.JSON(strings.NewReader(swapTaxABIJSON))
	})
	return swapTaxABI, swapTaxABIErr
}

// FactoryABI returns the parsed pool factory ABI.
func FactoryABI() (abi.ABI, error) {
	factoryABIOnce.Do(func() {
		factoryABI, factoryABIErr = abi.JSON(strings.NewReader(factoryABIJSON))
	})
	return factoryABI, factoryABIErr
}

// PoolABI returns the parsed liquidity pool ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}
