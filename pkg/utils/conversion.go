package utils

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float32ToBytes converte um valor float32 para bytes (IEEE 754, big-endian como no S7)
func Float32ToBytes(val float32) []byte {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, math.Float32bits(val))
	return bytes
}

// BytesToFloat32 converte bytes (IEEE 754, big-endian) para float32
func BytesToFloat32(bytes []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(bytes))
}

// Int16ToBytes converte um valor int16 para bytes big-endian
func Int16ToBytes(val int16) []byte {
	bytes := make([]byte, 2)
	binary.BigEndian.PutUint16(bytes, uint16(val))
	return bytes
}

// BytesToInt16 converte bytes big-endian para int16
func BytesToInt16(bytes []byte) int16 {
	return int16(binary.BigEndian.Uint16(bytes))
}

// HexStringToFloat32 converte uma string hexadecimal IEEE-754 para float32
func HexStringToFloat32(hexStr string) (float32, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")

	val, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("hex IEEE-754 inválido %q: %w", hexStr, err)
	}
	return math.Float32frombits(uint32(val)), nil
}

// Float32ToHexString converte float32 para a representação hexadecimal IEEE-754
func Float32ToHexString(val float32) string {
	return fmt.Sprintf("%08X", math.Float32bits(val))
}

// HexToInt32 interpreta até 8 dígitos hexadecimais como inteiro de 32 bits com sinal
func HexToInt32(hexStr string) (int32, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")

	val, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("hex inteiro inválido %q: %w", hexStr, err)
	}
	return int32(uint32(val)), nil
}

// Int32ToHex é o inverso de HexToInt32 (complemento de dois)
func Int32ToHex(val int32) string {
	return fmt.Sprintf("%X", uint32(val))
}

// FormatFloat formata um float com precisão fixa
func FormatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}
