package leitor

import (
	"path/filepath"
	"regexp"
	"strings"

	"conferencia-service/internal/domain"
	"conferencia-service/internal/formato"

	"go.uber.org/zap"
)

// Expressões para o texto extraído de contas de energia (modelo NF3e). A
// extração do texto em si é responsabilidade do chamador; aqui só entra o
// texto por página já concatenado.
var (
	reNotaFiscal = regexp.MustCompile(`NOTA FISCAL Nº (\d+)`)
	reSerie      = regexp.MustCompile(`NOTA FISCAL Nº \d+\s*-\s*SÉRIE\s*(\S+)`)
	reCNPJ       = regexp.MustCompile(`CNPJ/CPF:\s*([\d./-]+)`)
	reValor      = regexp.MustCompile(`R\$\*{5,}(\d{1,3}(?:\.\d{3})*,\d{2})`)
	reValorAlt   = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*,\d{2})\nO Pagamento poderá ser realizado`)
	reEmissao    = regexp.MustCompile(`DATA DE EMISSÃO:\s*(\d{2}/\d{2}/\d{4})`)
	reDest       = regexp.MustCompile(`(?m)^\s*DESTINATÁRIO:?\s*(.+?)\s*$`)
	reProtocolo  = regexp.MustCompile(`Protocolo de autorização:\s*(.*?)\s*-`)
	reUC         = regexp.MustCompile(`(?:JAN|FEV|MAR|ABR|MAI|JUN|JUL|AGO|SET|OUT|NOV|DEZ)/\d{4}\s*\n?(\d{9,12})`)
	reChave      = regexp.MustCompile(`(?i)chave de acesso:\s*(\d+)`)
)

// ParseNF3e extrai os dados fiscais do texto de uma conta de energia. O nome
// do arquivo (sem extensão) identifica a unidade consumidora; quando o corpo
// do texto traz uma UC divergente, o arquivo prevalece e a divergência vira
// aviso no log.
func (l *Leitor) ParseNF3e(nome string, dados []byte) (*ResultadoParse, error) {
	texto := string(dados)

	buscar := func(re *regexp.Regexp) string {
		m := re.FindStringSubmatch(texto)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}

	ucArquivo := strings.TrimSuffix(filepath.Base(nome), filepath.Ext(nome))
	if ucConteudo := buscar(reUC); ucConteudo != "" && ucConteudo != ucArquivo {
		l.log.Warn("unidade consumidora divergente",
			zap.String("arquivo", nome),
			zap.String("uc_conteudo", ucConteudo),
			zap.String("uc_arquivo", ucArquivo))
	}

	valorTexto := buscar(reValor)
	if valorTexto == "" {
		valorTexto = buscar(reValorAlt)
	}
	valor, _ := formato.ParseValorBR(valorTexto)

	chave := buscar(reChave)
	if chave != "" {
		chave = formato.PreencherZeros(chave, 44)
	}

	nota := &domain.NotaNF3e{
		NotaFiscal:         buscar(reNotaFiscal),
		Serie:              buscar(reSerie),
		CNPJ:               buscar(reCNPJ),
		Valor:              valor,
		DataEmissao:        buscar(reEmissao),
		NomeDestinatario:   buscar(reDest),
		Protocolo:          buscar(reProtocolo),
		UnidadeConsumidora: ucArquivo,
		ChaveAcesso:        chave,
	}
	return &ResultadoParse{NotaNF3e: nota}, nil
}
