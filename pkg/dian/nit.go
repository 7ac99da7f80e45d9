package dian

import (
	"fmt"
	"strings"
)

// pesos para el cálculo del dígito de verificación NIT (Orden Administrativa 4 de 1989, DIAN).
// Se aplican de derecha a izquierda sobre los dígitos del NIT sin DV.
var nitWeights = [15]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// ComputeNITVerificationDigit calcula el dígito de verificación (módulo 11) para un NIT sin DV.
func ComputeNITVerificationDigit(baseNIT string) (byte, error) {
	digits := OnlyDigits(baseNIT)
	if digits == "" {
		return 0, fmt.Errorf("dian: NIT vacío")
	}
	if len(digits) > len(nitWeights) {
		return 0, fmt.Errorf("dian: NIT demasiado largo (%d dígitos)", len(digits))
	}
	var sum int
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		sum += d * nitWeights[i]
	}
	remainder := sum % 11
	if remainder == 0 || remainder == 1 {
		return byte('0' + remainder), nil
	}
	return byte('0' + (11 - remainder)), nil
}

// ValidateNITVerificationDigit valida un NIT escrito con DV separado por guion
// ("900123456-7", "900.123.456-7").
func ValidateNITVerificationDigit(taxID string) error {
	base, dv := SplitNIT(taxID)
	if dv == "" {
		return fmt.Errorf("dian: NIT de persona jurídica debe incluir dígito de verificación")
	}
	expected, err := ComputeNITVerificationDigit(base)
	if err != nil {
		return err
	}
	if dv[0] != expected {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %s", expected, dv)
	}
	return nil
}

// SplitNIT separa un NIT en número base y dígito de verificación.
// Solo se reconoce DV cuando viene separado por guion; sin guion todo es base.
func SplitNIT(taxID string) (base, dv string) {
	taxID = strings.TrimSpace(taxID)
	if idx := strings.LastIndex(taxID, "-"); idx != -1 {
		return OnlyDigits(taxID[:idx]), OnlyDigits(taxID[idx+1:])
	}
	return OnlyDigits(taxID), ""
}

// BaseNIT devuelve solo los dígitos del NIT sin el dígito de verificación.
func BaseNIT(taxID string) string {
	base, _ := SplitNIT(taxID)
	return base
}

// CheckDigit devuelve el DV informado o, si no viene, el calculado.
func CheckDigit(taxID string) string {
	base, dv := SplitNIT(taxID)
	if dv != "" {
		return dv
	}
	computed, err := ComputeNITVerificationDigit(base)
	if err != nil {
		return ""
	}
	return string(computed)
}

// OnlyDigits deja solo dígitos 0-9.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
