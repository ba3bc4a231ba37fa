// Package formato reúne utilitários de formatação compartilhados pelos
// leitores e pelo gerador de planilhas: máscaras de CPF/CNPJ, preenchimento
// com zeros e conversão leniente de números fiscais.
package formato

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatarCpfCnpj aplica a máscara de CPF (11 dígitos) ou CNPJ (14 dígitos).
// Qualquer outro conteúdo passa sem alteração.
func FormatarCpfCnpj(valor string) string {
	if valor == "" || !somenteDigitos(valor) {
		return valor
	}
	switch len(valor) {
	case 11:
		return fmt.Sprintf("%s.%s.%s-%s", valor[:3], valor[3:6], valor[6:9], valor[9:])
	case 14:
		return fmt.Sprintf("%s.%s.%s/%s-%s", valor[:2], valor[2:5], valor[5:8], valor[8:12], valor[12:])
	}
	return valor
}

func somenteDigitos(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PreencherZeros completa o valor com zeros à esquerda até o tamanho dado.
func PreencherZeros(valor string, tamanho int) string {
	if len(valor) >= tamanho {
		return valor
	}
	return strings.Repeat("0", tamanho-len(valor)) + valor
}

// ParseValor converte um número fiscal em float64 de forma leniente:
// vírgula decimal vira ponto e valores vazios ou inválidos resultam em 0.
func ParseValor(valor string) float64 {
	s := strings.TrimSpace(valor)
	if s == "" {
		return 0.0
	}
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

// ParseValorBR converte valores no formato brasileiro com separador de
// milhar ("1.234,56") e prefixo monetário. Diferente de ParseValor, devolve
// erro para entrada inválida, para que o chamador possa descartar a linha.
func ParseValorBR(valor string) (float64, error) {
	s := strings.TrimSpace(valor)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0.0, fmt.Errorf("valor vazio")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// FormatarAliquota devolve a alíquota como texto com duas casas. Comparar a
// alíquota pelo texto formatado evita grupos espúrios por ruído de ponto
// flutuante.
func FormatarAliquota(valor float64) string {
	return fmt.Sprintf("%.2f", valor)
}

// MapearCRT traduz o código de regime tributário do emitente.
func MapearCRT(crt string) string {
	switch crt {
	case "1":
		return "Simples Nacional"
	case "2":
		return "Simples Nacional, excesso sublimite de receita bruta"
	case "3":
		return "Regime Normal"
	case "4":
		return "Microempreendedor Individual"
	}
	return "Não identificado"
}
