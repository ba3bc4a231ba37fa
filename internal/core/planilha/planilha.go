// Package planilha monta as planilhas de conferência. A ordem das abas e os
// nomes de coluna são contrato estável com quem consome o arquivo gerado.
package planilha

import (
	"fmt"

	"conferencia-service/internal/core/agregador"
	"conferencia-service/internal/domain"
	"conferencia-service/internal/formato"

	"github.com/xuri/excelize/v2"
)

const formatoMoeda = `"R$" #,##0.00`

// estilos reúne os IDs de estilo criados uma vez por arquivo.
type estilos struct {
	cabecalho     int
	texto         int
	esquerda      int
	moeda         int
	vermelho      int
	vermelhoMoeda int
}

func novosEstilos(f *excelize.File) (*estilos, error) {
	cabecalho, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao criar estilo de cabeçalho: %w", err)
	}
	texto, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	esquerda, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return nil, err
	}
	fmtMoeda := formatoMoeda
	moeda, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtMoeda,
		Alignment:    &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	vermelho, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	vermelhoMoeda, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Color: "FF0000"},
		CustomNumFmt: &fmtMoeda,
		Alignment:    &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	return &estilos{
		cabecalho:     cabecalho,
		texto:         texto,
		esquerda:      esquerda,
		moeda:         moeda,
		vermelho:      vermelho,
		vermelhoMoeda: vermelhoMoeda,
	}, nil
}

// aba acumula a escrita de uma planilha: cabeçalho estilizado, larguras de
// coluna ajustadas ao conteúdo e gridlines ocultas.
type aba struct {
	f        *excelize.File
	nome     string
	est      *estilos
	larguras []float64
	linha    int
}

func novaAba(f *excelize.File, nome string, est *estilos, cabecalhos []string) (*aba, error) {
	if _, err := f.NewSheet(nome); err != nil {
		return nil, fmt.Errorf("falha ao criar aba %s: %w", nome, err)
	}
	mostrar := false
	if err := f.SetSheetView(nome, 0, &excelize.ViewOptions{ShowGridLines: &mostrar}); err != nil {
		return nil, err
	}
	a := &aba{f: f, nome: nome, est: est, larguras: make([]float64, len(cabecalhos)), linha: 1}
	for i, c := range cabecalhos {
		cel, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellStr(nome, cel, c); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(nome, cel, cel, est.cabecalho); err != nil {
			return nil, err
		}
		a.registrar(i, c)
	}
	return a, nil
}

func (a *aba) registrar(col int, valor string) {
	if l := float64(len([]rune(valor))) + 2; col < len(a.larguras) && l > a.larguras[col] {
		a.larguras[col] = l
	}
}

// celula é um valor a ser escrito com um estilo. Texto força SetCellStr,
// necessário para chaves de acesso de 44 dígitos não virarem número.
type celula struct {
	valor  any
	estilo int
	texto  bool
}

func (a *aba) escreverLinha(celulas []celula) error {
	a.linha++
	for i, c := range celulas {
		cel, _ := excelize.CoordinatesToCellName(i+1, a.linha)
		if c.texto {
			if err := a.f.SetCellStr(a.nome, cel, fmt.Sprint(c.valor)); err != nil {
				return err
			}
		} else {
			if err := a.f.SetCellValue(a.nome, cel, c.valor); err != nil {
				return err
			}
		}
		if err := a.f.SetCellStyle(a.nome, cel, cel, c.estilo); err != nil {
			return err
		}
		switch v := c.valor.(type) {
		case string:
			a.registrar(i, v)
		case float64:
			a.registrar(i, fmt.Sprintf("R$ %.2f", v))
		default:
			a.registrar(i, fmt.Sprint(v))
		}
	}
	return nil
}

func (a *aba) pularLinha() {
	a.linha++
}

func (a *aba) ajustarLarguras() error {
	for i, l := range a.larguras {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if l < 10 {
			l = 10
		}
		if err := a.f.SetColWidth(a.nome, col, col, l); err != nil {
			return err
		}
	}
	return nil
}

func finalizar(f *excelize.File, primeiraAba string) ([]byte, error) {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(primeiraAba)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("falha ao gravar planilha: %w", err)
	}
	return buf.Bytes(), nil
}

// GerarNFCe monta a planilha completa da conferência de NFC-e: dados
// conciliados, resumos, linhas de item, quebras de sequência e status por
// arquivo.
func GerarNFCe(conc *domain.ResultadoConciliacao, resumos domain.Resumos, status []domain.StatusArquivo) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	est, err := novosEstilos(f)
	if err != nil {
		return nil, err
	}

	if err := abaDados(f, est, conc.Documentos); err != nil {
		return nil, err
	}
	if err := abaResumoCFOP(f, est, resumos.PorCFOP); err != nil {
		return nil, err
	}
	if err := abaResumoNF(f, est, resumos.PorNF); err != nil {
		return nil, err
	}
	if err := abaResumoProdutos(f, est, resumos.PorProduto); err != nil {
		return nil, err
	}
	if err := abaXMLCompleto(f, est, conc.Linhas); err != nil {
		return nil, err
	}
	if err := abaSequencia(f, est, conc.Quebras); err != nil {
		return nil, err
	}
	if err := abaStatus(f, est, conc.Contagens, status); err != nil {
		return nil, err
	}

	return finalizar(f, "Dados_NFC-e")
}

func abaDados(f *excelize.File, est *estilos, docs []domain.DocumentoFiscal) error {
	a, err := novaAba(f, "Dados_NFC-e", est, []string{
		"Número_Doc", "Chave_Acesso", "Situação_do_Documento", "Modelo",
		"CNPJ_Emissor", "CPF_CNPJ_Destinatário", "UF_Destinatário",
		"Valor_Total", "Data_de_Emissão", "Serie", "Regime_Tributário",
	})
	if err != nil {
		return err
	}
	for _, d := range docs {
		texto := est.texto
		moeda := est.moeda
		if d.Situacao == domain.SituacaoCancelado {
			texto = est.vermelho
			moeda = est.vermelhoMoeda
		}
		var numero any = ""
		if d.NumeroValido {
			numero = d.NumeroDoc
		}
		cels := []celula{
			{valor: numero, estilo: texto},
			{valor: d.ChaveAcesso, estilo: texto, texto: true},
			{valor: string(d.Situacao), estilo: texto},
			{valor: d.Modelo, estilo: texto},
			{valor: formato.FormatarCpfCnpj(d.CNPJEmissor), estilo: texto},
			{valor: formato.FormatarCpfCnpj(d.CpfCnpjDest), estilo: texto},
			{valor: d.UFDest, estilo: texto},
			{valor: d.ValorTotal, estilo: moeda},
			{valor: d.DataEmissao, estilo: texto},
			{valor: d.Serie, estilo: texto, texto: true},
			{valor: d.RegimeTributario, estilo: texto},
		}
		if err := a.escreverLinha(cels); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

func abaResumoCFOP(f *excelize.File, est *estilos, linhas []domain.ResumoCFOPRow) error {
	a, err := novaAba(f, "Resumo CFOP", est, []string{
		"CST", "CFOP", "Alíquota", "Valor Total", "Base de Cálculo", "ICMS",
	})
	if err != nil {
		return err
	}
	for _, r := range linhas {
		cels := []celula{
			{valor: r.CST, estilo: est.texto, texto: true},
			{valor: r.CFOP, estilo: est.texto, texto: true},
			{valor: r.Aliquota, estilo: est.texto},
			{valor: r.ValorTotal, estilo: est.moeda},
			{valor: r.BaseCalculo, estilo: est.moeda},
			{valor: r.ValorICMS, estilo: est.moeda},
		}
		if err := a.escreverLinha(cels); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

func abaResumoNF(f *excelize.File, est *estilos, linhas []domain.ResumoNFRow) error {
	a, err := novaAba(f, "Resumo_NFC-e", est, []string{
		"Número NF", "Série", "Valor Produto", "Valor Desconto", "Valor Líquido",
		"Base de Cálculo ICMS", "Valor ICMS",
		"Valor PIS", "Base de Cálculo PIS",
		"Valor COFINS", "Base de Cálculo COFINS",
	})
	if err != nil {
		return err
	}
	for _, r := range linhas {
		cels := []celula{
			{valor: r.NumeroNF, estilo: est.texto, texto: true},
			{valor: r.Serie, estilo: est.texto, texto: true},
			{valor: r.ValorProduto, estilo: est.moeda},
			{valor: r.ValorDesconto, estilo: est.moeda},
			{valor: r.ValorLiquido, estilo: est.moeda},
			{valor: r.BaseICMS, estilo: est.moeda},
			{valor: r.ValorICMS, estilo: est.moeda},
			{valor: r.ValorPIS, estilo: est.moeda},
			{valor: r.BasePIS, estilo: est.moeda},
			{valor: r.ValorCOFINS, estilo: est.moeda},
			{valor: r.BaseCOFINS, estilo: est.moeda},
		}
		if err := a.escreverLinha(cels); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

func abaResumoProdutos(f *excelize.File, est *estilos, linhas []domain.ResumoProdutoRow) error {
	a, err := novaAba(f, "Resumo_Produtos", est, []string{
		"Cod_Produto", "Descrição_Produto", "NCM", "Quantidade", "Valor_Unitario",
		"Valor_Total", "CST_ICMS", "Base_Calculo", "Aliquota_ICMS_(%)", "Valor_ICMS",
	})
	if err != nil {
		return err
	}
	for _, r := range linhas {
		cels := []celula{
			{valor: r.CodProduto, estilo: est.texto, texto: true},
			{valor: r.Descricao, estilo: est.esquerda},
			{valor: r.NCM, estilo: est.texto, texto: true},
			{valor: r.Quantidade, estilo: est.texto},
			{valor: r.ValorUnitario, estilo: est.moeda},
			{valor: r.ValorTotal, estilo: est.moeda},
			{valor: r.CSTICMS, estilo: est.texto, texto: true},
			{valor: r.BaseCalculo, estilo: est.moeda},
			{valor: r.AliquotaICMS, estilo: est.texto},
			{valor: r.ValorICMS, estilo: est.moeda},
		}
		if err := a.escreverLinha(cels); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

var colunasMoedaXML = map[string]bool{
	"Valor Produto": true, "Valor Desconto": true,
	"Valor Unitário Comercial": true, "Valor Unitário Tributável": true,
	"Base de Cálculo ICMS": true, "Valor ICMS": true,
	"Base de Cálculo PIS": true, "Valor PIS": true,
	"Base de Cálculo COFINS": true, "Valor COFINS": true,
}

func abaXMLCompleto(f *excelize.File, est *estilos, linhas []domain.LinhaItem) error {
	cabecalhos := []string{
		"Número NF", "Série", "Data de Emissão", "CNF",
		"CNPJ Emitente", "Nome Fantasia Emitente",
		"CPF/CNPJ Destinatário", "Nome Destinatário",
		"Código Produto", "EAN", "Descrição Produto", "NCM", "CFOP",
		"Unidade Comercial", "Quantidade Comercial", "Valor Unitário Comercial",
		"Valor Desconto", "Valor Produto",
		"Unidade Tributável", "Quantidade Tributável", "Valor Unitário Tributável",
		"Origem ICMS", "CST ICMS", "Base de Cálculo ICMS", "Alíquota ICMS (%)", "Valor ICMS",
		"CST PIS", "Base de Cálculo PIS", "Alíquota PIS (%)", "Valor PIS",
		"CST COFINS", "Base de Cálculo COFINS", "Alíquota COFINS (%)", "Valor COFINS",
		"Tipo de Pagamento", "Redução_BC_%", "Chave_Acesso",
	}
	a, err := novaAba(f, "XML_Completo", est, cabecalhos)
	if err != nil {
		return err
	}
	for _, l := range linhas {
		valores := []any{
			l.NumeroNF, l.Serie, l.DataEmissao, l.CNF,
			formato.FormatarCpfCnpj(l.CNPJEmit), l.NomeFantasia,
			formato.FormatarCpfCnpj(l.CpfCnpjDest), l.NomeDest,
			l.CodigoProduto, l.EAN, l.Descricao, l.NCM, l.CFOP,
			l.UnidadeCom, l.QuantidadeCom, l.ValorUnitCom,
			l.ValorDesconto, l.ValorProduto,
			l.UnidadeTrib, l.QuantidadeTrib, l.ValorUnitTrib,
			l.ICMSOrigem, l.ICMSCST, l.ICMSBase, l.ICMSAliquota, l.ICMSValor,
			l.PISCST, l.PISBase, l.PISAliquota, l.PISValor,
			l.COFINSCST, l.COFINSBase, l.COFINSAliquota, l.COFINSValor,
			l.TipoPagamento, l.ReducaoBC, l.ChaveAcesso,
		}
		cels := make([]celula, len(valores))
		for i, v := range valores {
			c := celula{valor: v, estilo: est.texto}
			switch cabecalhos[i] {
			case "Chave_Acesso", "CST ICMS", "CST PIS", "CST COFINS", "NCM", "EAN", "Código Produto", "Número NF", "Série", "CNF":
				c.texto = true
			}
			if colunasMoedaXML[cabecalhos[i]] {
				c.estilo = est.moeda
			}
			cels[i] = c
		}
		if err := a.escreverLinha(cels); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

func abaSequencia(f *excelize.File, est *estilos, quebras []domain.QuebraSequencia) error {
	a, err := novaAba(f, "Sequência", est, []string{
		"Série", "Número_Anterior", "Número_Atual", "Quebra_Detectada",
	})
	if err != nil {
		return err
	}
	for _, q := range quebras {
		cels := []celula{
			{valor: q.Serie, estilo: est.texto, texto: true},
			{valor: q.NumeroAnterior, estilo: est.texto},
			{valor: q.NumeroAtual, estilo: est.texto},
			{valor: "SIM", estilo: est.texto},
		}
		if err := a.escreverLinha(cels); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

func abaStatus(f *excelize.File, est *estilos, c domain.Contagens, status []domain.StatusArquivo) error {
	a, err := novaAba(f, "Status", est, []string{
		"Documentos_Lidos", "Duplicados_Removidos", "Documentos_Retidos",
	})
	if err != nil {
		return err
	}
	if err := a.escreverLinha([]celula{
		{valor: c.DocumentosLidos, estilo: est.texto},
		{valor: c.DuplicadosRemovidos, estilo: est.texto},
		{valor: c.DocumentosRetidos, estilo: est.texto},
	}); err != nil {
		return err
	}
	a.pularLinha()

	// tabela por arquivo, abaixo do bloco de contagens
	a.linha++
	celA, _ := excelize.CoordinatesToCellName(1, a.linha)
	celB, _ := excelize.CoordinatesToCellName(2, a.linha)
	if err := f.SetCellStr("Status", celA, "Arquivo_XML"); err != nil {
		return err
	}
	if err := f.SetCellStr("Status", celB, "Progresso"); err != nil {
		return err
	}
	if err := f.SetCellStyle("Status", celA, celB, est.cabecalho); err != nil {
		return err
	}
	for _, s := range status {
		estiloProgresso := est.texto
		if s.Progresso == "ERRO" {
			estiloProgresso = est.vermelho
		}
		if err := a.escreverLinha([]celula{
			{valor: s.Arquivo, estilo: est.esquerda},
			{valor: s.Progresso, estilo: estiloProgresso},
		}); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

// GerarNF3e monta a planilha das contas de energia extraídas.
func GerarNF3e(notas []domain.NotaNF3e, status []domain.StatusArquivo) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	est, err := novosEstilos(f)
	if err != nil {
		return nil, err
	}

	a, err := novaAba(f, "Notas Fiscais", est, []string{
		"Nota Fiscal", "Série", "CNPJ", "Valor (R$)", "Data de Emissão",
		"Nome do Destinatário", "Protocolo de Autorização",
		"Unidade Consumidora", "Chave de Acesso",
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetPanes("Notas Fiscais", &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, err
	}
	for _, n := range notas {
		cels := []celula{
			{valor: n.NotaFiscal, estilo: est.texto, texto: true},
			{valor: n.Serie, estilo: est.texto, texto: true},
			{valor: n.CNPJ, estilo: est.texto},
			{valor: n.Valor, estilo: est.moeda},
			{valor: n.DataEmissao, estilo: est.texto},
			{valor: n.NomeDestinatario, estilo: est.esquerda},
			{valor: n.Protocolo, estilo: est.texto},
			{valor: n.UnidadeConsumidora, estilo: est.texto, texto: true},
			{valor: n.ChaveAcesso, estilo: est.texto, texto: true},
		}
		if err := a.escreverLinha(cels); err != nil {
			return nil, err
		}
	}
	if err := a.ajustarLarguras(); err != nil {
		return nil, err
	}

	if err := abaStatusSimples(f, est, status); err != nil {
		return nil, err
	}

	return finalizar(f, "Notas Fiscais")
}

func abaStatusSimples(f *excelize.File, est *estilos, status []domain.StatusArquivo) error {
	a, err := novaAba(f, "Status", est, []string{"Arquivo", "Progresso"})
	if err != nil {
		return err
	}
	for _, s := range status {
		estiloProgresso := est.texto
		if s.Progresso == "ERRO" {
			estiloProgresso = est.vermelho
		}
		if err := a.escreverLinha([]celula{
			{valor: s.Arquivo, estilo: est.esquerda},
			{valor: s.Progresso, estilo: estiloProgresso},
		}); err != nil {
			return err
		}
	}
	return a.ajustarLarguras()
}

// GerarNatReceita monta o resumo agrupado por natureza da receita.
func GerarNatReceita(res agregador.ResultadoNatReceita) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	est, err := novosEstilos(f)
	if err != nil {
		return nil, err
	}

	a, err := novaAba(f, "Resumo", est, []string{"Cód. Nat Receita", "Total Valor Contábil"})
	if err != nil {
		return nil, err
	}
	for _, r := range res.Resumo {
		if err := a.escreverLinha([]celula{
			{valor: r.NatReceita, estilo: est.texto, texto: true},
			{valor: r.Total, estilo: est.moeda},
		}); err != nil {
			return nil, err
		}
	}
	if err := a.ajustarLarguras(); err != nil {
		return nil, err
	}

	return finalizar(f, "Resumo")
}
