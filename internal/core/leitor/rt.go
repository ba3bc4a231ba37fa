package leitor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"conferencia-service/internal/domain"
	"conferencia-service/internal/formato"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// colunasRT é o esquema posicional fixo do extrato texto: 13 colunas, sem
// linha de cabeçalho.
const colunasRT = 13

// ParseRT lê o extrato texto de 13 colunas (ISO-8859-1, campos entre aspas).
// Linhas com valor total inválido são descartadas e contadas; a contagem
// volta para o chamador informar o usuário.
func ParseRT(dados []byte) ([]domain.LinhaRT, int, error) {
	decoder := charmap.ISO8859_1.NewDecoder()
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(dados), decoder))
	reader.Comma = ','
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var linhas []domain.LinhaRT
	ignoradas := 0
	for {
		registro, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("erro ao ler extrato texto: %w", err)
		}
		if len(registro) < colunasRT {
			ignoradas++
			continue
		}

		valorTotal, err := formato.ParseValorBR(registro[12])
		if err != nil {
			ignoradas++
			continue
		}

		qtde, _ := formato.ParseValorBR(registro[9])
		valorProduto, _ := formato.ParseValorBR(registro[10])
		desconto, _ := formato.ParseValorBR(registro[11])

		linhas = append(linhas, domain.LinhaRT{
			Documento:    registro[0],
			Descricao:    registro[1],
			CodItem:      registro[2],
			NatReceita:   registro[3],
			CodSTB:       registro[4],
			NCM:          registro[5],
			CSTPIS:       registro[6],
			CSTCOFINS:    registro[7],
			CFOP:         registro[8],
			Qtde:         qtde,
			ValorProduto: valorProduto,
			Desconto:     desconto,
			ValorTotal:   valorTotal,
		})
	}
	return linhas, ignoradas, nil
}
