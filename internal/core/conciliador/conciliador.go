// Package conciliador resolve quais documentos do lote permanecem válidos:
// separa autorizações de cancelamentos, aplica a precedência do cancelamento,
// remove duplicidades e aponta quebras de sequência por série. O resultado
// não depende da ordem de chegada dos registros.
package conciliador

import (
	"sort"
	"strconv"

	"conferencia-service/internal/domain"
	"conferencia-service/internal/formato"
)

// Conciliar aplica a conciliação completa sobre o resultado da coleta.
func Conciliar(coleta *domain.ResultadoColeta) *domain.ResultadoConciliacao {
	docs := normalizarSeries(coleta.Documentos)

	cancelados := chavesCanceladas(docs)

	// Cancelamento vence sempre, não importa a ordem de chegada.
	var retidos []domain.DocumentoFiscal
	for _, d := range docs {
		if d.Situacao == domain.SituacaoAutorizado {
			if _, ok := cancelados[d.ChaveAcesso]; ok {
				continue
			}
		}
		retidos = append(retidos, d)
	}

	retidos, duplicados := deduplicar(retidos)
	ordenar(retidos)

	chavesValidas := make(map[string]struct{})
	for _, d := range retidos {
		if d.Situacao == domain.SituacaoAutorizado {
			chavesValidas[d.ChaveAcesso] = struct{}{}
		}
	}

	linhas, ambiguas := filtrarLinhas(coleta.Linhas, retidos, chavesValidas)

	return &domain.ResultadoConciliacao{
		Documentos:      retidos,
		Linhas:          linhas,
		ChavesValidas:   chavesValidas,
		JuncoesAmbiguas: ambiguas,
		Quebras:         detectarQuebras(retidos),
		Contagens: domain.Contagens{
			DocumentosLidos:     len(docs),
			DuplicadosRemovidos: duplicados,
			DocumentosRetidos:   len(retidos),
		},
	}
}

// normalizarSeries padroniza a série com três dígitos em todos os eventos.
func normalizarSeries(docs []domain.DocumentoFiscal) []domain.DocumentoFiscal {
	saida := make([]domain.DocumentoFiscal, len(docs))
	for i, d := range docs {
		if d.Serie != "" {
			d.Serie = formato.PreencherZeros(d.Serie, 3)
		}
		saida[i] = d
	}
	return saida
}

func chavesCanceladas(docs []domain.DocumentoFiscal) map[string]struct{} {
	cancelados := make(map[string]struct{})
	for _, d := range docs {
		if d.Situacao == domain.SituacaoCancelado {
			cancelados[d.ChaveAcesso] = struct{}{}
		}
	}
	return cancelados
}

// deduplicar remove duplicidades por igualdade total da linha e devolve
// quantas foram removidas.
func deduplicar(docs []domain.DocumentoFiscal) ([]domain.DocumentoFiscal, int) {
	vistos := make(map[domain.DocumentoFiscal]struct{}, len(docs))
	var saida []domain.DocumentoFiscal
	for _, d := range docs {
		if _, ok := vistos[d]; ok {
			continue
		}
		vistos[d] = struct{}{}
		saida = append(saida, d)
	}
	return saida, len(docs) - len(saida)
}

// ordenar impõe ordem determinística: série, número (inválidos por último),
// chave e situação, com os demais campos fechando uma ordem total. Após a
// deduplicação não existem linhas totalmente iguais, então o resultado nunca
// depende da ordem de chegada.
func ordenar(docs []domain.DocumentoFiscal) {
	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.Serie != b.Serie {
			return a.Serie < b.Serie
		}
		if a.NumeroValido != b.NumeroValido {
			return a.NumeroValido
		}
		if a.NumeroDoc != b.NumeroDoc {
			return a.NumeroDoc < b.NumeroDoc
		}
		if a.ChaveAcesso != b.ChaveAcesso {
			return a.ChaveAcesso < b.ChaveAcesso
		}
		if a.Situacao != b.Situacao {
			return a.Situacao < b.Situacao
		}
		if a.ValorTotal != b.ValorTotal {
			return a.ValorTotal < b.ValorTotal
		}
		if a.DataEmissao != b.DataEmissao {
			return a.DataEmissao < b.DataEmissao
		}
		if a.CNPJEmissor != b.CNPJEmissor {
			return a.CNPJEmissor < b.CNPJEmissor
		}
		if a.CpfCnpjDest != b.CpfCnpjDest {
			return a.CpfCnpjDest < b.CpfCnpjDest
		}
		if a.UFDest != b.UFDest {
			return a.UFDest < b.UFDest
		}
		if a.Modelo != b.Modelo {
			return a.Modelo < b.Modelo
		}
		return a.RegimeTributario < b.RegimeTributario
	})
}

// filtrarLinhas mantém apenas linhas de documentos autorizados válidos.
// Linhas sem chave de acesso são associadas por número + série; quando o par
// número + série aponta para mais de uma chave, o par é devolvido como junção
// ambígua para o chamador avisar o usuário. Como os retidos chegam ordenados,
// a chave que prevalece é sempre a mesma.
func filtrarLinhas(linhas []domain.LinhaItem, retidos []domain.DocumentoFiscal, chavesValidas map[string]struct{}) ([]domain.LinhaItem, []string) {
	porNumeroSerie := make(map[string]string)
	ambiguas := make(map[string]struct{})
	for _, d := range retidos {
		if d.Situacao != domain.SituacaoAutorizado || !d.NumeroValido {
			continue
		}
		k := chaveJuncao(strconv.Itoa(d.NumeroDoc), d.Serie)
		if anterior, ok := porNumeroSerie[k]; ok && anterior != d.ChaveAcesso {
			ambiguas[k] = struct{}{}
		}
		porNumeroSerie[k] = d.ChaveAcesso
	}

	var saida []domain.LinhaItem
	for _, l := range linhas {
		chave := l.ChaveAcesso
		if chave == "" {
			chave = porNumeroSerie[chaveJuncao(l.NumeroNF, formato.PreencherZeros(l.Serie, 3))]
			if chave == "" {
				continue
			}
			l.ChaveAcesso = chave
		}
		if _, ok := chavesValidas[chave]; !ok {
			continue
		}
		saida = append(saida, l)
	}

	var pares []string
	for k := range ambiguas {
		pares = append(pares, k)
	}
	sort.Strings(pares)
	return saida, pares
}

func chaveJuncao(numero, serie string) string {
	// normaliza zeros à esquerda do número para a junção
	if n, err := strconv.Atoi(numero); err == nil {
		numero = strconv.Itoa(n)
	}
	return numero + "|" + serie
}

// detectarQuebras emite uma quebra por par adjacente de números distintos
// cuja diferença não é 1, dentro de cada série. Autorizações sem número
// ficam de fora.
func detectarQuebras(docs []domain.DocumentoFiscal) []domain.QuebraSequencia {
	porSerie := make(map[string][]int)
	for _, d := range docs {
		if d.Situacao != domain.SituacaoAutorizado || !d.NumeroValido {
			continue
		}
		porSerie[d.Serie] = append(porSerie[d.Serie], d.NumeroDoc)
	}

	series := make([]string, 0, len(porSerie))
	for s := range porSerie {
		series = append(series, s)
	}
	sort.Strings(series)

	var quebras []domain.QuebraSequencia
	for _, s := range series {
		numeros := distintosOrdenados(porSerie[s])
		for i := 1; i < len(numeros); i++ {
			if numeros[i] != numeros[i-1]+1 {
				quebras = append(quebras, domain.QuebraSequencia{
					Serie:          s,
					NumeroAnterior: numeros[i-1],
					NumeroAtual:    numeros[i],
				})
			}
		}
	}
	return quebras
}

func distintosOrdenados(numeros []int) []int {
	vistos := make(map[int]struct{}, len(numeros))
	var saida []int
	for _, n := range numeros {
		if _, ok := vistos[n]; ok {
			continue
		}
		vistos[n] = struct{}{}
		saida = append(saida, n)
	}
	sort.Ints(saida)
	return saida
}
