// package domain/nfe.go
package domain

import "encoding/xml"

// ProcNFe representa a raiz de um XML de NFC-e processado (nota + protocolo).
type ProcNFe struct {
	XMLName xml.Name `xml:"nfeProc"`
	NFe     NFeXML   `xml:"NFe"`
	ProtNFe struct {
		InfProt struct {
			ChNFe string `xml:"chNFe"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

// NFeXML representa o nó <NFe>. Também serve como raiz para XMLs sem protocolo.
type NFeXML struct {
	InfNFe InfNFe `xml:"infNFe"`
}

// InfNFe representa o nó <infNFe> com os dados da nota.
type InfNFe struct {
	ID    string   `xml:"Id,attr"`
	Ide   IdeXML   `xml:"ide"`
	Emit  EmitXML  `xml:"emit"`
	Dest  *DestXML `xml:"dest"`
	Det   []DetXML `xml:"det"`
	Total TotalXML `xml:"total"`
	Pag   PagXML   `xml:"pag"`
}

// IdeXML representa o nó <ide> (identificação da nota).
type IdeXML struct {
	CNF   string `xml:"cNF"`
	Mod   string `xml:"mod"`
	Serie string `xml:"serie"`
	NNF   string `xml:"nNF"`
	DhEmi string `xml:"dhEmi"`
}

// EmitXML representa o nó <emit> (emitente).
type EmitXML struct {
	CNPJ  string `xml:"CNPJ"`
	XNome string `xml:"xNome"`
	XFant string `xml:"xFant"`
	CRT   string `xml:"CRT"`
}

// DestXML representa o nó <dest> (destinatário), que pode estar ausente.
type DestXML struct {
	CNPJ      string `xml:"CNPJ"`
	CPF       string `xml:"CPF"`
	XNome     string `xml:"xNome"`
	EnderDest struct {
		UF string `xml:"UF"`
	} `xml:"enderDest"`
}

// TotalXML representa o nó <total> com os totais de impostos.
type TotalXML struct {
	ICMSTot struct {
		VNF string `xml:"vNF"`
	} `xml:"ICMSTot"`
}

// PagXML representa o nó <pag> com os detalhes de pagamento.
type PagXML struct {
	DetPag []struct {
		TPag string `xml:"tPag"`
	} `xml:"detPag"`
}

// DetXML representa um nó <det> (linha de produto).
type DetXML struct {
	Prod    ProdXML    `xml:"prod"`
	Imposto ImpostoXML `xml:"imposto"`
}

// ProdXML representa o nó <prod>. Valores numéricos ficam como texto e são
// convertidos de forma leniente no leitor.
type ProdXML struct {
	CProd   string `xml:"cProd"`
	CEAN    string `xml:"cEAN"`
	XProd   string `xml:"xProd"`
	NCM     string `xml:"NCM"`
	CFOP    string `xml:"CFOP"`
	UCom    string `xml:"uCom"`
	QCom    string `xml:"qCom"`
	VUnCom  string `xml:"vUnCom"`
	VProd   string `xml:"vProd"`
	VDesc   string `xml:"vDesc"`
	UTrib   string `xml:"uTrib"`
	QTrib   string `xml:"qTrib"`
	VUnTrib string `xml:"vUnTrib"`
}

// ImpostoXML representa o nó <imposto> de uma linha.
type ImpostoXML struct {
	ICMS   ICMSXML   `xml:"ICMS"`
	PIS    PISXML    `xml:"PIS"`
	COFINS COFINSXML `xml:"COFINS"`
}

// ICMSValores reúne os campos comuns a todas as variantes de ICMS.
type ICMSValores struct {
	Orig   string `xml:"orig"`
	CST    string `xml:"CST"`
	CSOSN  string `xml:"CSOSN"`
	VBC    string `xml:"vBC"`
	PICMS  string `xml:"pICMS"`
	VICMS  string `xml:"vICMS"`
	PRedBC string `xml:"pRedBC"`
}

// ICMSXML representa o grupo <ICMS> com suas variantes por CST/CSOSN.
type ICMSXML struct {
	ICMS00    *ICMSValores `xml:"ICMS00"`
	ICMS10    *ICMSValores `xml:"ICMS10"`
	ICMS20    *ICMSValores `xml:"ICMS20"`
	ICMS40    *ICMSValores `xml:"ICMS40"`
	ICMS51    *ICMSValores `xml:"ICMS51"`
	ICMS60    *ICMSValores `xml:"ICMS60"`
	ICMS70    *ICMSValores `xml:"ICMS70"`
	ICMS90    *ICMSValores `xml:"ICMS90"`
	ICMSSN101 *ICMSValores `xml:"ICMSSN101"`
	ICMSSN102 *ICMSValores `xml:"ICMSSN102"`
	ICMSSN500 *ICMSValores `xml:"ICMSSN500"`
	ICMSSN900 *ICMSValores `xml:"ICMSSN900"`
}

// Variantes devolve as variantes na ordem do layout fiscal.
func (i *ICMSXML) Variantes() []*ICMSValores {
	return []*ICMSValores{
		i.ICMS00, i.ICMS10, i.ICMS20, i.ICMS40, i.ICMS51, i.ICMS60,
		i.ICMS70, i.ICMS90, i.ICMSSN101, i.ICMSSN102, i.ICMSSN500, i.ICMSSN900,
	}
}

// Vigente devolve a primeira variante presente no XML, ou nil.
func (i *ICMSXML) Vigente() *ICMSValores {
	for _, v := range i.Variantes() {
		if v != nil {
			return v
		}
	}
	return nil
}

// PISValores reúne os campos comuns às variantes de PIS.
type PISValores struct {
	CST  string `xml:"CST"`
	VBC  string `xml:"vBC"`
	PPIS string `xml:"pPIS"`
	VPIS string `xml:"vPIS"`
}

// PISXML representa o grupo <PIS>.
type PISXML struct {
	PISAliq *PISValores `xml:"PISAliq"`
	PISNT   *PISValores `xml:"PISNT"`
	PISOutr *PISValores `xml:"PISOutr"`
}

// Vigente devolve a primeira variante presente no XML, ou nil.
func (p *PISXML) Vigente() *PISValores {
	for _, v := range []*PISValores{p.PISAliq, p.PISNT, p.PISOutr} {
		if v != nil {
			return v
		}
	}
	return nil
}

// COFINSValores reúne os campos comuns às variantes de COFINS.
type COFINSValores struct {
	CST     string `xml:"CST"`
	VBC     string `xml:"vBC"`
	PCOFINS string `xml:"pCOFINS"`
	VCOFINS string `xml:"vCOFINS"`
}

// COFINSXML representa o grupo <COFINS>.
type COFINSXML struct {
	COFINSAliq *COFINSValores `xml:"COFINSAliq"`
	COFINSNT   *COFINSValores `xml:"COFINSNT"`
	COFINSOutr *COFINSValores `xml:"COFINSOutr"`
}

// Vigente devolve a primeira variante presente no XML, ou nil.
func (c *COFINSXML) Vigente() *COFINSValores {
	for _, v := range []*COFINSValores{c.COFINSAliq, c.COFINSNT, c.COFINSOutr} {
		if v != nil {
			return v
		}
	}
	return nil
}

// ProcEventoNFe representa a raiz do XML de evento de cancelamento.
type ProcEventoNFe struct {
	XMLName xml.Name `xml:"procEventoNFe"`
	Evento  struct {
		InfEvento struct {
			CNPJ      string `xml:"CNPJ"`
			ChNFe     string `xml:"chNFe"`
			DhEvento  string `xml:"dhEvento"`
			TpEvento  string `xml:"tpEvento"`
			DetEvento struct {
				DescEvento string `xml:"descEvento"`
			} `xml:"detEvento"`
		} `xml:"infEvento"`
	} `xml:"evento"`
}
