package chain

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ERC-20 function selectors: keccak256(signature)[0:4].
//
//nolint:gochecknoglobals // ERC-20 constants
var (
	transferSelector  = []byte{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
)

const transferCalldataLen = 4 + 32 + 32

// TransferCalldata builds the call data for transfer(to, amount).
func TransferCalldata(to string, amount *big.Int) []byte {
	data := make([]byte, 0, transferCalldataLen)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// BalanceOfCalldata builds the call data for balanceOf(owner).
func BalanceOfCalldata(owner string) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	return append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)
}

// ParseTransferCalldata decodes transfer(to, amount) call data. ok is false
// for any other call.
func ParseTransferCalldata(data []byte) (to string, amount *big.Int, ok bool) {
	if len(data) != transferCalldataLen || !bytes.Equal(data[:4], transferSelector) {
		return "", nil, false
	}
	// address words carry 12 bytes of zero padding
	if !bytes.Equal(data[4:16], make([]byte, 12)) {
		return "", nil, false
	}
	to = common.BytesToAddress(data[16:36]).Hex()
	amount = new(big.Int).SetBytes(data[36:68])
	return to, amount, true
}
