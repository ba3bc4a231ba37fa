// package domain/models.go
package domain

// SituacaoDocumento define a situação de um documento fiscal no lote.
type SituacaoDocumento string

// Situações possíveis de um documento.
const (
	SituacaoAutorizado SituacaoDocumento = "Autorizado"
	SituacaoCancelado  SituacaoDocumento = "Cancelamento de NF-e homologado"
)

// DocumentoFiscal representa um evento de documento: uma autorização ou um
// cancelamento. É a linha da aba Dados_NFC-e.
type DocumentoFiscal struct {
	NumeroDoc        int
	NumeroValido     bool
	ChaveAcesso      string // sempre 44 dígitos, com zeros à esquerda
	Situacao         SituacaoDocumento
	Modelo           string
	CNPJEmissor      string
	CpfCnpjDest      string
	UFDest           string
	ValorTotal       float64
	DataEmissao      string // dd-mm-yyyy
	Serie            string
	RegimeTributario string
}

// LinhaItem representa uma linha de produto/serviço de um documento
// (aba XML_Completo). Imutável após o parse.
type LinhaItem struct {
	NumeroNF     string
	Serie        string
	DataEmissao  string
	CNF          string
	CNPJEmit     string
	NomeFantasia string
	CpfCnpjDest  string
	NomeDest     string

	CodigoProduto  string
	EAN            string
	Descricao      string
	NCM            string
	CFOP           string
	UnidadeCom     string
	QuantidadeCom  float64
	ValorUnitCom   float64
	ValorDesconto  float64
	ValorProduto   float64
	UnidadeTrib    string
	QuantidadeTrib float64
	ValorUnitTrib  float64

	ICMSOrigem   string
	ICMSCST      string
	ICMSBase     float64
	ICMSAliquota float64
	ICMSValor    float64

	PISCST      string
	PISBase     float64
	PISAliquota float64
	PISValor    float64

	COFINSCST      string
	COFINSBase     float64
	COFINSAliquota float64
	COFINSValor    float64

	TipoPagamento string
	// ReducaoBC fica vazia quando o XML não informa pRedBC. Vazio e zero
	// têm significados distintos e não podem ser confundidos.
	ReducaoBC string

	ChaveAcesso string
}

// StatusArquivo registra o resultado do processamento de um arquivo do lote.
type StatusArquivo struct {
	Arquivo   string
	Progresso string // "OK" ou "ERRO"
}

// QuebraSequencia aponta uma descontinuidade de numeração dentro de uma série.
type QuebraSequencia struct {
	Serie          string
	NumeroAnterior int
	NumeroAtual    int
}

// ResultadoColeta agrega tudo que o coletor extraiu de um lote.
type ResultadoColeta struct {
	Documentos []DocumentoFiscal
	Linhas     []LinhaItem
	Status     []StatusArquivo
}

// Contagens resume o processamento para o usuário julgar a completude.
type Contagens struct {
	ArquivosLidos       int
	ArquivosComErro     int
	DocumentosLidos     int
	DuplicadosRemovidos int
	DocumentosRetidos   int
}

// ResultadoConciliacao é a saída do conciliador: documentos normalizados,
// linhas filtradas pelas chaves válidas e os fatos derivados.
// JuncoesAmbiguas lista os pares número|série que apontavam para mais de uma
// chave na junção de linhas sem chave de acesso.
type ResultadoConciliacao struct {
	Documentos      []DocumentoFiscal
	Linhas          []LinhaItem
	ChavesValidas   map[string]struct{}
	JuncoesAmbiguas []string
	Quebras         []QuebraSequencia
	Contagens       Contagens
}

// ResumoCFOPRow é uma linha do resumo por CST/CFOP/alíquota.
type ResumoCFOPRow struct {
	CST         string
	CFOP        string
	Aliquota    string // "%.2f", comparada como texto para não criar grupos por ruído de ponto flutuante
	ValorTotal  float64
	BaseCalculo float64
	ValorICMS   float64
}

// ResumoNFRow é uma linha do resumo por documento (número + série).
type ResumoNFRow struct {
	NumeroNF      string
	Serie         string
	ValorProduto  float64
	ValorDesconto float64
	ValorLiquido  float64
	BaseICMS      float64
	ValorICMS     float64
	ValorPIS      float64
	BasePIS       float64
	ValorCOFINS   float64
	BaseCOFINS    float64
}

// ResumoProdutoRow é uma linha do resumo por produto.
type ResumoProdutoRow struct {
	CodProduto    string
	Descricao     string
	NCM           string
	Quantidade    float64
	ValorUnitario float64
	ValorTotal    float64
	CSTICMS       string
	BaseCalculo   float64
	AliquotaICMS  string
	ValorICMS     float64
}

// Resumos reúne as visões derivadas das linhas conciliadas.
type Resumos struct {
	PorCFOP    []ResumoCFOPRow
	PorNF      []ResumoNFRow
	PorProduto []ResumoProdutoRow
}

// NotaNF3e representa os dados extraídos do texto de uma conta de energia
// elétrica (modelo NF3e).
type NotaNF3e struct {
	NotaFiscal         string
	Serie              string
	CNPJ               string
	Valor              float64
	DataEmissao        string
	NomeDestinatario   string
	Protocolo          string
	UnidadeConsumidora string
	ChaveAcesso        string
}

// LinhaRT é uma linha do extrato texto de 13 colunas posicionais.
type LinhaRT struct {
	Documento    string
	Descricao    string
	CodItem      string
	NatReceita   string
	CodSTB       string
	NCM          string
	CSTPIS       string
	CSTCOFINS    string
	CFOP         string
	Qtde         float64
	ValorProduto float64
	Desconto     float64
	ValorTotal   float64
}

// ResumoNatReceitaRow agrupa o extrato por código de natureza da receita.
type ResumoNatReceitaRow struct {
	NatReceita string
	Total      float64
}
