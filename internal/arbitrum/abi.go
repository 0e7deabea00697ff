package arbitrum

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const gatewayABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "l1Token", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "sequenceNumber", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "DepositInitiated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "l1Token", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "exitNum", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "WithdrawalFinalized",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "userFrom", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "userTo", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "gateway", "type": "address"}
    ],
    "name": "TransferRouted",
    "type": "event"
  }
]`

const outboxABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "l2Sender", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "zero", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "transactionIndex", "type": "uint256"}
    ],
    "name": "OutBoxTransactionExecuted",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "bytes32[]", "name": "proof", "type": "bytes32[]"},
      {"internalType": "uint256", "name": "index", "type": "uint256"},
      {"internalType": "address", "name": "l2Sender", "type": "address"},
      {"internalType": "address", "name": "to", "type": "address"},
      {"internalType": "uint256", "name": "l2Block", "type": "uint256"},
      {"internalType": "uint256", "name": "l1Block", "type": "uint256"},
      {"internalType": "uint256", "name": "l2Timestamp", "type": "uint256"},
      {"internalType": "uint256", "name": "value", "type": "uint256"},
      {"internalType": "bytes", "name": "data", "type": "bytes"}
    ],
    "name": "executeTransaction",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	gatewayABI     abi.ABI
	gatewayABIOnce sync.Once
	gatewayABIErr  error

	outboxABI     abi.ABI
	outboxABIOnce sync.Once
	outboxABIErr  error
)

// GatewayABI returns the parsed L1 token gateway and router event ABI.
func GatewayABI() (abi.ABI, error) {
	gatewayABIOnce.Do(func() {
		gatewayABI, gatewayABIErr = abi.JSON(strings.NewReader(gatewayABIJSON))
	})
	return gatewayABI, gatewayABIErr
}

// OutboxABI returns the parsed Arbitrum outbox ABI.
func OutboxABI() (abi.ABI, error) {
	outboxABIOnce.Do(func() {
		outboxABI, outboxABIErr = abi.JSON(strings.NewReader(outboxABIJSON))
	})
	return outboxABI, outboxABIErr
}

// mustArguments builds an unnamed tuple schema from solidity type names.
func mustArguments(types ...string) abi.Arguments {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args
}

// ExecuteTransactionSelector is the method ID of the outbox's
// executeTransaction(bytes32[],uint256,address,address,uint256,uint256,uint256,uint256,bytes).
var ExecuteTransactionSelector = [4]byte{0x08, 0x63, 0x5a, 0x95}

// ExecuteTransactionHead is the executeTransaction argument tuple without the
// trailing dynamic bytes. The proof array is read as its head offset word, so
// the transaction index sits at position 1.
var ExecuteTransactionHead = mustArguments(
	"uint256", "uint256", "address", "address",
	"uint256", "uint256", "uint256", "uint256",
)
