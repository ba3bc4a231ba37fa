package leitor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"conferencia-service/internal/domain"
	"conferencia-service/internal/formato"

	"go.uber.org/zap"
)

// Posições do número e da série dentro da chave de acesso de 44 dígitos.
const (
	chaveSerieInicio  = 22
	chaveSerieFim     = 25
	chaveNumeroInicio = 25
	chaveNumeroFim    = 34
)

// ParseXML converte um XML de NFC-e em um evento de documento mais suas
// linhas de item. XMLs com raiz procEventoNFe são tratados como eventos de
// cancelamento e não contribuem com linhas.
func (l *Leitor) ParseXML(nome string, dados []byte) (*ResultadoParse, error) {
	if raizXML(dados) == "procEventoNFe" {
		return l.parseCancelamento(nome, dados)
	}
	return l.parseAutorizacao(nome, dados)
}

// raizXML devolve o nome do elemento raiz do documento, sem o namespace.
func raizXML(dados []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(dados))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

func (l *Leitor) parseCancelamento(nome string, dados []byte) (*ResultadoParse, error) {
	var evento domain.ProcEventoNFe
	if err := xml.Unmarshal(dados, &evento); err != nil {
		return nil, fmt.Errorf("falha ao fazer parse do evento %s: %w", nome, err)
	}

	inf := evento.Evento.InfEvento
	chave := formato.PreencherZeros(inf.ChNFe, 44)

	numero, numeroOK := numeroDaChave(chave)
	doc := &domain.DocumentoFiscal{
		NumeroDoc:    numero,
		NumeroValido: numeroOK,
		ChaveAcesso:  chave,
		Situacao:     domain.SituacaoCancelado,
		Modelo:       "65",
		CNPJEmissor:  formato.FormatarCpfCnpj(inf.CNPJ),
		ValorTotal:   0.0,
		DataEmissao:  formatarData(inf.DhEvento),
		Serie:        serieDaChave(chave),
	}
	return &ResultadoParse{Documento: doc}, nil
}

func (l *Leitor) parseAutorizacao(nome string, dados []byte) (*ResultadoParse, error) {
	inf, chaveProt, err := desempacotarNFe(dados)
	if err != nil {
		return nil, fmt.Errorf("falha ao fazer parse do XML %s: %w", nome, err)
	}

	chave := formato.PreencherZeros(strings.TrimPrefix(inf.ID, "NFe"), 44)
	if chaveProt != "" && chaveProt != strings.TrimPrefix(inf.ID, "NFe") {
		// Precedência mantida do comportamento histórico: vale a chave
		// derivada do atributo Id, o protocolo só gera aviso.
		l.log.Warn("chave do protocolo diverge da chave do Id",
			zap.String("arquivo", nome),
			zap.String("chave_id", chave),
			zap.String("chave_protocolo", chaveProt))
	}

	numero, numeroOK := parseNumero(inf.Ide.NNF)
	regime := ""
	if inf.Emit.CRT != "" {
		regime = formato.MapearCRT(inf.Emit.CRT)
	}

	doc := &domain.DocumentoFiscal{
		NumeroDoc:        numero,
		NumeroValido:     numeroOK,
		ChaveAcesso:      chave,
		Situacao:         domain.SituacaoAutorizado,
		Modelo:           inf.Ide.Mod,
		CNPJEmissor:      formato.FormatarCpfCnpj(inf.Emit.CNPJ),
		CpfCnpjDest:      formato.FormatarCpfCnpj(cpfCnpjDest(inf.Dest)),
		UFDest:           ufDest(inf.Dest),
		ValorTotal:       formato.ParseValor(inf.Total.ICMSTot.VNF),
		DataEmissao:      formatarData(inf.Ide.DhEmi),
		Serie:            inf.Ide.Serie,
		RegimeTributario: regime,
	}

	linhas := make([]domain.LinhaItem, 0, len(inf.Det))
	for _, det := range inf.Det {
		linhas = append(linhas, l.montarLinha(inf, det, chave))
	}
	return &ResultadoParse{Documento: doc, Linhas: linhas}, nil
}

// desempacotarNFe aceita tanto nfeProc (nota com protocolo) quanto NFe pura.
func desempacotarNFe(dados []byte) (*domain.InfNFe, string, error) {
	var proc domain.ProcNFe
	if err := xml.Unmarshal(dados, &proc); err == nil && proc.NFe.InfNFe.ID != "" {
		return &proc.NFe.InfNFe, proc.ProtNFe.InfProt.ChNFe, nil
	}

	var nfe domain.NFeXML
	if err := xml.Unmarshal(dados, &nfe); err != nil {
		return nil, "", err
	}
	if nfe.InfNFe.ID == "" {
		return nil, "", fmt.Errorf("infNFe.Id não encontrado no XML")
	}
	return &nfe.InfNFe, "", nil
}

func (l *Leitor) montarLinha(inf *domain.InfNFe, det domain.DetXML, chave string) domain.LinhaItem {
	linha := domain.LinhaItem{
		NumeroNF:     inf.Ide.NNF,
		Serie:        inf.Ide.Serie,
		DataEmissao:  formatarDataBR(inf.Ide.DhEmi),
		CNF:          inf.Ide.CNF,
		CNPJEmit:     formato.FormatarCpfCnpj(inf.Emit.CNPJ),
		NomeFantasia: inf.Emit.XFant,
		CpfCnpjDest:  formato.FormatarCpfCnpj(cpfCnpjDest(inf.Dest)),
		NomeDest:     nomeDest(inf.Dest),

		CodigoProduto:  det.Prod.CProd,
		EAN:            det.Prod.CEAN,
		Descricao:      det.Prod.XProd,
		NCM:            det.Prod.NCM,
		CFOP:           det.Prod.CFOP,
		UnidadeCom:     det.Prod.UCom,
		QuantidadeCom:  formato.ParseValor(det.Prod.QCom),
		ValorUnitCom:   formato.ParseValor(det.Prod.VUnCom),
		ValorDesconto:  formato.ParseValor(det.Prod.VDesc),
		ValorProduto:   formato.ParseValor(det.Prod.VProd),
		UnidadeTrib:    det.Prod.UTrib,
		QuantidadeTrib: formato.ParseValor(det.Prod.QTrib),
		ValorUnitTrib:  formato.ParseValor(det.Prod.VUnTrib),

		ChaveAcesso: chave,
		ReducaoBC:   reducaoBC(det.Imposto.ICMS),
	}

	if icms := det.Imposto.ICMS.Vigente(); icms != nil {
		linha.ICMSOrigem = icms.Orig
		linha.ICMSCST = cstOuCSOSN(icms)
		linha.ICMSBase = formato.ParseValor(icms.VBC)
		linha.ICMSAliquota = formato.ParseValor(icms.PICMS)
		linha.ICMSValor = formato.ParseValor(icms.VICMS)
	}
	if pis := det.Imposto.PIS.Vigente(); pis != nil {
		linha.PISCST = pis.CST
		linha.PISBase = formato.ParseValor(pis.VBC)
		linha.PISAliquota = formato.ParseValor(pis.PPIS)
		linha.PISValor = formato.ParseValor(pis.VPIS)
	}
	if cofins := det.Imposto.COFINS.Vigente(); cofins != nil {
		linha.COFINSCST = cofins.CST
		linha.COFINSBase = formato.ParseValor(cofins.VBC)
		linha.COFINSAliquota = formato.ParseValor(cofins.PCOFINS)
		linha.COFINSValor = formato.ParseValor(cofins.VCOFINS)
	}
	if len(inf.Pag.DetPag) > 0 {
		linha.TipoPagamento = inf.Pag.DetPag[0].TPag
	}
	return linha
}

// reducaoBC lê pRedBC preferindo a variante ICMS20; na ausência dela,
// procura em qualquer variante. Ausente de vez, fica vazio; vazio e zero
// não se equivalem.
func reducaoBC(icms domain.ICMSXML) string {
	if icms.ICMS20 != nil && icms.ICMS20.PRedBC != "" {
		return icms.ICMS20.PRedBC
	}
	for _, v := range icms.Variantes() {
		if v != nil && v.PRedBC != "" {
			return v.PRedBC
		}
	}
	return ""
}

func cstOuCSOSN(v *domain.ICMSValores) string {
	if v.CST != "" {
		return v.CST
	}
	return v.CSOSN
}

func cpfCnpjDest(dest *domain.DestXML) string {
	if dest == nil {
		return ""
	}
	if dest.CPF != "" {
		return dest.CPF
	}
	return dest.CNPJ
}

func ufDest(dest *domain.DestXML) string {
	if dest == nil {
		return ""
	}
	return dest.EnderDest.UF
}

func nomeDest(dest *domain.DestXML) string {
	if dest == nil {
		return ""
	}
	return dest.XNome
}

func parseNumero(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

func numeroDaChave(chave string) (int, bool) {
	if len(chave) < chaveNumeroFim {
		return 0, false
	}
	return parseNumero(chave[chaveNumeroInicio:chaveNumeroFim])
}

func serieDaChave(chave string) string {
	if len(chave) < chaveSerieFim {
		return ""
	}
	return chave[chaveSerieInicio:chaveSerieFim]
}

// formatarData trunca o timestamp de emissão para a data em dd-mm-yyyy.
func formatarData(dhEmi string) string {
	if len(dhEmi) < 10 {
		return ""
	}
	t, err := time.Parse("2006-01-02", dhEmi[:10])
	if err != nil {
		return ""
	}
	return t.Format("02-01-2006")
}

// formatarDataBR formata a data de emissão das linhas em dd/mm/yyyy.
func formatarDataBR(dhEmi string) string {
	if len(dhEmi) < 10 {
		return ""
	}
	t, err := time.Parse("2006-01-02", dhEmi[:10])
	if err != nil {
		return ""
	}
	return t.Format("02/01/2006")
}
