// Package agregador deriva as visões de resumo das linhas conciliadas.
// As somas monetárias acumulam em decimal para que o resultado não dependa
// da ordem de iteração, já que soma de float64 não é associativa.
package agregador

import (
	"sort"
	"strconv"

	"conferencia-service/internal/domain"
	"conferencia-service/internal/formato"

	"github.com/shopspring/decimal"
)

// Agregar produz os três resumos a partir das linhas já filtradas pela
// conciliação.
func Agregar(linhas []domain.LinhaItem) domain.Resumos {
	return domain.Resumos{
		PorCFOP:    porCFOP(linhas),
		PorNF:      porNF(linhas),
		PorProduto: porProduto(linhas),
	}
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func arred(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}

// ---------------------- resumo CST / CFOP / alíquota ----------------------

type chaveCFOP struct {
	CST      string
	CFOP     string
	Aliquota string
}

type somaCFOP struct {
	valor decimal.Decimal
	base  decimal.Decimal
	icms  decimal.Decimal
}

func porCFOP(linhas []domain.LinhaItem) []domain.ResumoCFOPRow {
	grupos := make(map[chaveCFOP]*somaCFOP)
	for _, l := range linhas {
		// a alíquota entra na chave como texto com duas casas
		k := chaveCFOP{CST: l.ICMSCST, CFOP: l.CFOP, Aliquota: formato.FormatarAliquota(l.ICMSAliquota)}
		g, ok := grupos[k]
		if !ok {
			g = &somaCFOP{}
			grupos[k] = g
		}
		g.valor = g.valor.Add(dec(l.ValorProduto)).Sub(dec(l.ValorDesconto))
		g.base = g.base.Add(dec(l.ICMSBase))
		g.icms = g.icms.Add(dec(l.ICMSValor))
	}

	saida := make([]domain.ResumoCFOPRow, 0, len(grupos))
	for k, g := range grupos {
		saida = append(saida, domain.ResumoCFOPRow{
			CST:         k.CST,
			CFOP:        k.CFOP,
			Aliquota:    k.Aliquota,
			ValorTotal:  arred(g.valor),
			BaseCalculo: arred(g.base),
			ValorICMS:   arred(g.icms),
		})
	}
	sort.Slice(saida, func(i, j int) bool {
		if saida[i].CST != saida[j].CST {
			return saida[i].CST < saida[j].CST
		}
		if saida[i].CFOP != saida[j].CFOP {
			return saida[i].CFOP < saida[j].CFOP
		}
		return saida[i].Aliquota < saida[j].Aliquota
	})
	return saida
}

// ---------------------- resumo por documento ----------------------

type chaveNF struct {
	Numero string
	Serie  string
}

type somaNF struct {
	produto, desconto  decimal.Decimal
	baseICMS, icms     decimal.Decimal
	basePIS, pis       decimal.Decimal
	baseCOFINS, cofins decimal.Decimal
}

func porNF(linhas []domain.LinhaItem) []domain.ResumoNFRow {
	grupos := make(map[chaveNF]*somaNF)
	for _, l := range linhas {
		k := chaveNF{Numero: l.NumeroNF, Serie: l.Serie}
		g, ok := grupos[k]
		if !ok {
			g = &somaNF{}
			grupos[k] = g
		}
		g.produto = g.produto.Add(dec(l.ValorProduto))
		g.desconto = g.desconto.Add(dec(l.ValorDesconto))
		g.baseICMS = g.baseICMS.Add(dec(l.ICMSBase))
		g.icms = g.icms.Add(dec(l.ICMSValor))
		g.basePIS = g.basePIS.Add(dec(l.PISBase))
		g.pis = g.pis.Add(dec(l.PISValor))
		g.baseCOFINS = g.baseCOFINS.Add(dec(l.COFINSBase))
		g.cofins = g.cofins.Add(dec(l.COFINSValor))
	}

	saida := make([]domain.ResumoNFRow, 0, len(grupos))
	for k, g := range grupos {
		saida = append(saida, domain.ResumoNFRow{
			NumeroNF:      k.Numero,
			Serie:         k.Serie,
			ValorProduto:  arred(g.produto),
			ValorDesconto: arred(g.desconto),
			ValorLiquido:  arred(g.produto.Sub(g.desconto)),
			BaseICMS:      arred(g.baseICMS),
			ValorICMS:     arred(g.icms),
			ValorPIS:      arred(g.pis),
			BasePIS:       arred(g.basePIS),
			ValorCOFINS:   arred(g.cofins),
			BaseCOFINS:    arred(g.baseCOFINS),
		})
	}
	sort.Slice(saida, func(i, j int) bool {
		if saida[i].Serie != saida[j].Serie {
			return saida[i].Serie < saida[j].Serie
		}
		return menorNumerico(saida[i].NumeroNF, saida[j].NumeroNF)
	})
	return saida
}

// ---------------------- resumo por produto ----------------------

type chaveProduto struct {
	Cod  string
	Desc string
	NCM  string
}

// moda acumula a primeira moda observada: valor mais frequente, empates
// decididos pela primeira ocorrência.
type moda struct {
	contagens map[string]int
	ordem     []string
}

func novaModa() *moda {
	return &moda{contagens: make(map[string]int)}
}

func (m *moda) observar(v string) {
	if _, ok := m.contagens[v]; !ok {
		m.ordem = append(m.ordem, v)
	}
	m.contagens[v]++
}

func (m *moda) valor() string {
	melhor := ""
	maior := 0
	for _, v := range m.ordem {
		if m.contagens[v] > maior {
			melhor = v
			maior = m.contagens[v]
		}
	}
	return melhor
}

type somaProduto struct {
	valor, icms, base, qtde decimal.Decimal
	unitario                *moda
	cst                     *moda
	aliquota                *moda
}

func porProduto(linhas []domain.LinhaItem) []domain.ResumoProdutoRow {
	grupos := make(map[chaveProduto]*somaProduto)
	var ordem []chaveProduto
	for _, l := range linhas {
		k := chaveProduto{Cod: l.CodigoProduto, Desc: l.Descricao, NCM: l.NCM}
		g, ok := grupos[k]
		if !ok {
			g = &somaProduto{unitario: novaModa(), cst: novaModa(), aliquota: novaModa()}
			grupos[k] = g
			ordem = append(ordem, k)
		}
		g.valor = g.valor.Add(dec(l.ValorProduto))
		g.icms = g.icms.Add(dec(l.ICMSValor))
		g.base = g.base.Add(dec(l.ICMSBase))
		g.qtde = g.qtde.Add(dec(l.QuantidadeCom))
		// o valor unitário entra inteiro na moda; arredondar aqui fundiria
		// observações distintas de quatro casas em um mesmo balde
		g.unitario.observar(strconv.FormatFloat(l.ValorUnitCom, 'f', -1, 64))
		g.cst.observar(l.ICMSCST)
		g.aliquota.observar(formato.FormatarAliquota(l.ICMSAliquota))
	}

	saida := make([]domain.ResumoProdutoRow, 0, len(grupos))
	for _, k := range ordem {
		g := grupos[k]
		unitario, _ := strconv.ParseFloat(g.unitario.valor(), 64)
		saida = append(saida, domain.ResumoProdutoRow{
			CodProduto:    k.Cod,
			Descricao:     k.Desc,
			NCM:           k.NCM,
			Quantidade:    arred(g.qtde),
			ValorUnitario: unitario,
			ValorTotal:    arred(g.valor),
			CSTICMS:       g.cst.valor(),
			BaseCalculo:   arred(g.base),
			AliquotaICMS:  g.aliquota.valor(),
			ValorICMS:     arred(g.icms),
		})
	}
	sort.Slice(saida, func(i, j int) bool {
		return menorNumerico(saida[i].CodProduto, saida[j].CodProduto)
	})
	return saida
}

// menorNumerico compara como número quando ambos os lados são numéricos;
// números vêm antes de texto, texto compara lexicamente.
func menorNumerico(a, b string) bool {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// ---------------------- resumo por natureza da receita ----------------------

// ResultadoNatReceita devolve o resumo e os totais antes e depois do filtro
// de CST de PIS.
type ResultadoNatReceita struct {
	Resumo        []domain.ResumoNatReceitaRow
	TotalGeral    float64
	TotalFiltrado float64
}

// AgruparNatReceita agrupa o extrato texto por código de natureza da
// receita, aplicando o filtro opcional de CST_PIS.
func AgruparNatReceita(linhas []domain.LinhaRT, filtroCSTPIS []string) ResultadoNatReceita {
	filtro := make(map[string]struct{}, len(filtroCSTPIS))
	for _, cst := range filtroCSTPIS {
		filtro[cst] = struct{}{}
	}

	totalGeral := decimal.Zero
	totalFiltrado := decimal.Zero
	grupos := make(map[string]decimal.Decimal)
	for _, l := range linhas {
		v := dec(l.ValorTotal)
		totalGeral = totalGeral.Add(v)
		if len(filtro) > 0 {
			if _, ok := filtro[l.CSTPIS]; !ok {
				continue
			}
		}
		totalFiltrado = totalFiltrado.Add(v)
		grupos[l.NatReceita] = grupos[l.NatReceita].Add(v)
	}

	naturezas := make([]string, 0, len(grupos))
	for n := range grupos {
		naturezas = append(naturezas, n)
	}
	sort.Strings(naturezas)

	resumo := make([]domain.ResumoNatReceitaRow, 0, len(naturezas))
	for _, n := range naturezas {
		resumo = append(resumo, domain.ResumoNatReceitaRow{NatReceita: n, Total: arred(grupos[n])})
	}
	return ResultadoNatReceita{
		Resumo:        resumo,
		TotalGeral:    arred(totalGeral),
		TotalFiltrado: arred(totalFiltrado),
	}
}
