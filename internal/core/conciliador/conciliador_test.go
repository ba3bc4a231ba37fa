package conciliador_test

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conferencia-service/internal/core/conciliador"
	"conferencia-service/internal/domain"
)

func autorizacao(numero int, serie, chave string, valor float64) domain.DocumentoFiscal {
	return domain.DocumentoFiscal{
		NumeroDoc:    numero,
		NumeroValido: true,
		ChaveAcesso:  chave,
		Situacao:     domain.SituacaoAutorizado,
		Modelo:       "65",
		ValorTotal:   valor,
		Serie:        serie,
	}
}

func cancelamento(numero int, serie, chave string) domain.DocumentoFiscal {
	return domain.DocumentoFiscal{
		NumeroDoc:    numero,
		NumeroValido: true,
		ChaveAcesso:  chave,
		Situacao:     domain.SituacaoCancelado,
		Modelo:       "65",
		Serie:        serie,
	}
}

func chaveFake(sufixo string) string {
	return strings.Repeat("0", 44-len(sufixo)) + sufixo
}

func TestConciliar_CancelamentoVenceNasDuasOrdens(t *testing.T) {
	k1 := chaveFake("1")
	aut := autorizacao(10, "1", k1, 100)
	canc := cancelamento(10, "1", k1)

	for _, docs := range [][]domain.DocumentoFiscal{
		{aut, canc},
		{canc, aut},
	} {
		res := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: docs})
		require.Len(t, res.Documentos, 1)
		assert.Equal(t, domain.SituacaoCancelado, res.Documentos[0].Situacao)
		assert.Empty(t, res.ChavesValidas)
	}
}

func TestConciliar_CancelamentoOrfaoPermanece(t *testing.T) {
	res := conciliador.Conciliar(&domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{cancelamento(5, "1", chaveFake("5"))},
	})
	require.Len(t, res.Documentos, 1)
	assert.Equal(t, domain.SituacaoCancelado, res.Documentos[0].Situacao)
}

func TestConciliar_DeduplicacaoContaRemovidos(t *testing.T) {
	aut := autorizacao(1, "1", chaveFake("1"), 50)
	docs := []domain.DocumentoFiscal{aut, aut, aut, aut}

	res := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: docs})
	assert.Len(t, res.Documentos, 1)
	assert.Equal(t, 4, res.Contagens.DocumentosLidos)
	assert.Equal(t, 3, res.Contagens.DuplicadosRemovidos)
	assert.Equal(t, 1, res.Contagens.DocumentosRetidos)
}

func TestConciliar_QuebraDeSequencia(t *testing.T) {
	var docs []domain.DocumentoFiscal
	for _, n := range []int{10, 11, 13, 14} {
		docs = append(docs, autorizacao(n, "1", chaveFake(strconv.Itoa(n)), 10))
	}

	res := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: docs})
	require.Len(t, res.Quebras, 1)
	assert.Equal(t, "001", res.Quebras[0].Serie)
	assert.Equal(t, 11, res.Quebras[0].NumeroAnterior)
	assert.Equal(t, 13, res.Quebras[0].NumeroAtual)
}

func TestConciliar_QuebrasPorSerieIndependentes(t *testing.T) {
	docs := []domain.DocumentoFiscal{
		autorizacao(1, "1", chaveFake("1"), 10),
		autorizacao(3, "1", chaveFake("2"), 10),
		autorizacao(7, "2", chaveFake("3"), 10),
		autorizacao(8, "2", chaveFake("4"), 10),
	}

	res := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: docs})
	require.Len(t, res.Quebras, 1)
	assert.Equal(t, "001", res.Quebras[0].Serie)
}

func TestConciliar_CanceladoForaDaSequencia(t *testing.T) {
	// o número do documento cancelado não entra na detecção de quebras
	docs := []domain.DocumentoFiscal{
		autorizacao(1, "1", chaveFake("1"), 10),
		autorizacao(2, "1", chaveFake("2"), 10),
		cancelamento(2, "1", chaveFake("2")),
		autorizacao(4, "1", chaveFake("4"), 10),
	}

	res := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: docs})
	require.Len(t, res.Quebras, 1)
	assert.Equal(t, 1, res.Quebras[0].NumeroAnterior)
	assert.Equal(t, 4, res.Quebras[0].NumeroAtual)
}

func TestConciliar_NormalizaSerie(t *testing.T) {
	res := conciliador.Conciliar(&domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{autorizacao(1, "1", chaveFake("1"), 10)},
	})
	require.Len(t, res.Documentos, 1)
	assert.Equal(t, "001", res.Documentos[0].Serie)
}

func TestConciliar_FiltraLinhasDeCancelados(t *testing.T) {
	k1, k2 := chaveFake("1"), chaveFake("2")
	coleta := &domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{
			autorizacao(1, "1", k1, 10),
			autorizacao(2, "1", k2, 20),
			cancelamento(1, "1", k1),
		},
		Linhas: []domain.LinhaItem{
			{NumeroNF: "1", Serie: "1", ChaveAcesso: k1, ValorProduto: 10},
			{NumeroNF: "2", Serie: "1", ChaveAcesso: k2, ValorProduto: 20},
		},
	}

	res := conciliador.Conciliar(coleta)
	require.Len(t, res.Linhas, 1)
	assert.Equal(t, k2, res.Linhas[0].ChaveAcesso)
}

func TestConciliar_JuncaoPorNumeroESerie(t *testing.T) {
	k2 := chaveFake("2")
	coleta := &domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{autorizacao(2, "1", k2, 20)},
		Linhas: []domain.LinhaItem{
			// sem chave: associa por número + série, tolerando zeros à esquerda
			{NumeroNF: "002", Serie: "1", ValorProduto: 20},
			{NumeroNF: "999", Serie: "1", ValorProduto: 5},
		},
	}

	res := conciliador.Conciliar(coleta)
	require.Len(t, res.Linhas, 1)
	assert.Equal(t, k2, res.Linhas[0].ChaveAcesso)
}

func TestConciliar_DesempateEntreQuaseDuplicadas(t *testing.T) {
	// mesma chave, número e série, mas valores distintos: a ordem de saída
	// não pode depender da ordem de chegada
	k := chaveFake("7")
	a := autorizacao(7, "1", k, 100)
	b := autorizacao(7, "1", k, 999)

	direta := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: []domain.DocumentoFiscal{a, b}})
	inversa := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: []domain.DocumentoFiscal{b, a}})

	require.Len(t, direta.Documentos, 2)
	assert.Equal(t, direta.Documentos, inversa.Documentos)
	assert.Equal(t, 100.0, direta.Documentos[0].ValorTotal)
}

func TestConciliar_ApontaJuncaoAmbigua(t *testing.T) {
	// duas autorizações com o mesmo número e série mas chaves distintas: a
	// junção por número + série fica ambígua e o par é devolvido para aviso
	k1, k2 := chaveFake("1"), chaveFake("2")
	a := autorizacao(2, "1", k1, 10)
	b := autorizacao(2, "1", k2, 20)
	linha := domain.LinhaItem{NumeroNF: "2", Serie: "1", ValorProduto: 10}

	direta := conciliador.Conciliar(&domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{a, b},
		Linhas:     []domain.LinhaItem{linha},
	})
	inversa := conciliador.Conciliar(&domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{b, a},
		Linhas:     []domain.LinhaItem{linha},
	})

	assert.Equal(t, []string{"2|001"}, direta.JuncoesAmbiguas)
	require.Len(t, direta.Linhas, 1)
	assert.Equal(t, direta.Linhas, inversa.Linhas)
}

func TestConciliar_IndependeDaOrdem(t *testing.T) {
	k1, k2, k3 := chaveFake("1"), chaveFake("2"), chaveFake("3")
	docs := []domain.DocumentoFiscal{
		autorizacao(1, "1", k1, 10),
		autorizacao(2, "1", k2, 20),
		autorizacao(4, "1", k3, 40),
		autorizacao(4, "1", k3, 41), // quase duplicada, só o valor difere
		cancelamento(2, "1", k2),
		autorizacao(1, "1", k1, 10), // duplicado
	}

	base := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: docs})

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		embaralhados := make([]domain.DocumentoFiscal, len(docs))
		copy(embaralhados, docs)
		rng.Shuffle(len(embaralhados), func(a, b int) {
			embaralhados[a], embaralhados[b] = embaralhados[b], embaralhados[a]
		})

		res := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: embaralhados})
		assert.Equal(t, base.Documentos, res.Documentos)
		assert.Equal(t, base.Quebras, res.Quebras)
		assert.Equal(t, base.Contagens, res.Contagens)
	}
}

func TestConciliar_Idempotente(t *testing.T) {
	coleta := &domain.ResultadoColeta{
		Documentos: []domain.DocumentoFiscal{
			autorizacao(1, "1", chaveFake("1"), 10),
			cancelamento(2, "1", chaveFake("2")),
		},
	}

	primeira := conciliador.Conciliar(coleta)
	segunda := conciliador.Conciliar(&domain.ResultadoColeta{Documentos: primeira.Documentos})
	assert.Equal(t, primeira.Documentos, segunda.Documentos)
	assert.Zero(t, segunda.Contagens.DuplicadosRemovidos)
}
