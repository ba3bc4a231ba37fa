package leitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conferencia-service/internal/core/leitor"
	"conferencia-service/internal/domain"
)

const chaveTeste = "43240512345678000199650010000001231123456789"

const xmlAutorizacao = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe` + chaveTeste + `" versao="4.00">
      <ide><cNF>12345678</cNF><mod>65</mod><serie>1</serie><nNF>123</nNF><dhEmi>2024-05-10T14:30:00-03:00</dhEmi></ide>
      <emit><CNPJ>12345678000199</CNPJ><xNome>Mercado Exemplo Ltda</xNome><xFant>Mercado Exemplo</xFant><CRT>1</CRT></emit>
      <dest><CPF>12345678901</CPF><xNome>Consumidor Final</xNome><enderDest><UF>RS</UF></enderDest></dest>
      <det nItem="1">
        <prod><cProd>100</cProd><cEAN>7891234567890</cEAN><xProd>Arroz 5kg</xProd><NCM>10063021</NCM><CFOP>5102</CFOP><uCom>UN</uCom><qCom>2.0000</qCom><vUnCom>25.00</vUnCom><vProd>50.00</vProd><vDesc>5.00</vDesc><uTrib>UN</uTrib><qTrib>2.0000</qTrib><vUnTrib>25.00</vUnTrib></prod>
        <imposto>
          <ICMS><ICMS20><orig>0</orig><CST>20</CST><vBC>35.00</vBC><pRedBC>30.00</pRedBC><pICMS>17.00</pICMS><vICMS>5.95</vICMS></ICMS20></ICMS>
          <PIS><PISAliq><CST>01</CST><vBC>45.00</vBC><pPIS>1.65</pPIS><vPIS>0.74</vPIS></PISAliq></PIS>
          <COFINS><COFINSAliq><CST>01</CST><vBC>45.00</vBC><pCOFINS>7.60</pCOFINS><vCOFINS>3.42</vCOFINS></COFINSAliq></COFINS>
        </imposto>
      </det>
      <total><ICMSTot><vNF>45.00</vNF></ICMSTot></total>
      <pag><detPag><tPag>01</tPag></detPag></pag>
    </infNFe>
  </NFe>
  <protNFe><infProt><chNFe>` + chaveTeste + `</chNFe></infProt></protNFe>
</nfeProc>`

const xmlCancelamento = `<?xml version="1.0" encoding="UTF-8"?>
<procEventoNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.00">
  <evento>
    <infEvento>
      <CNPJ>12345678000199</CNPJ>
      <chNFe>` + chaveTeste + `</chNFe>
      <dhEvento>2024-05-11T09:00:00-03:00</dhEvento>
      <tpEvento>110111</tpEvento>
      <detEvento><descEvento>Cancelamento</descEvento></detEvento>
    </infEvento>
  </evento>
</procEventoNFe>`

func novoLeitorTeste() *leitor.Leitor {
	return leitor.NovoLeitor(zap.NewNop())
}

func TestParseXML_Autorizacao(t *testing.T) {
	res, err := novoLeitorTeste().ParseXML("nota.xml", []byte(xmlAutorizacao))
	require.NoError(t, err)
	require.NotNil(t, res.Documento)

	doc := res.Documento
	assert.Equal(t, 123, doc.NumeroDoc)
	assert.True(t, doc.NumeroValido)
	assert.Equal(t, chaveTeste, doc.ChaveAcesso)
	assert.Equal(t, domain.SituacaoAutorizado, doc.Situacao)
	assert.Equal(t, "65", doc.Modelo)
	assert.Equal(t, "12.345.678/0001-99", doc.CNPJEmissor)
	assert.Equal(t, "123.456.789-01", doc.CpfCnpjDest)
	assert.Equal(t, "RS", doc.UFDest)
	assert.Equal(t, 45.0, doc.ValorTotal)
	assert.Equal(t, "10-05-2024", doc.DataEmissao)
	assert.Equal(t, "1", doc.Serie)
	assert.Equal(t, "Simples Nacional", doc.RegimeTributario)

	require.Len(t, res.Linhas, 1)
	linha := res.Linhas[0]
	assert.Equal(t, "123", linha.NumeroNF)
	assert.Equal(t, "10/05/2024", linha.DataEmissao)
	assert.Equal(t, "Arroz 5kg", linha.Descricao)
	assert.Equal(t, "5102", linha.CFOP)
	assert.Equal(t, 50.0, linha.ValorProduto)
	assert.Equal(t, 5.0, linha.ValorDesconto)
	assert.Equal(t, "20", linha.ICMSCST)
	assert.Equal(t, 35.0, linha.ICMSBase)
	assert.Equal(t, 17.0, linha.ICMSAliquota)
	assert.Equal(t, 5.95, linha.ICMSValor)
	assert.Equal(t, "01", linha.PISCST)
	assert.Equal(t, 1.65, linha.PISAliquota)
	assert.Equal(t, "01", linha.COFINSCST)
	assert.Equal(t, 7.6, linha.COFINSAliquota)
	assert.Equal(t, "01", linha.TipoPagamento)
	assert.Equal(t, "30.00", linha.ReducaoBC)
	assert.Equal(t, chaveTeste, linha.ChaveAcesso)
}

func TestParseXML_Cancelamento(t *testing.T) {
	res, err := novoLeitorTeste().ParseXML("evento.xml", []byte(xmlCancelamento))
	require.NoError(t, err)
	require.NotNil(t, res.Documento)

	doc := res.Documento
	assert.Equal(t, domain.SituacaoCancelado, doc.Situacao)
	assert.Equal(t, chaveTeste, doc.ChaveAcesso)
	// número e série derivados das posições fixas da chave
	assert.Equal(t, 123, doc.NumeroDoc)
	assert.True(t, doc.NumeroValido)
	assert.Equal(t, "001", doc.Serie)
	assert.Equal(t, 0.0, doc.ValorTotal)
	assert.Equal(t, "65", doc.Modelo)
	assert.Equal(t, "11-05-2024", doc.DataEmissao)
	assert.Empty(t, res.Linhas)
}

func TestParseXML_SemProtocolo(t *testing.T) {
	xmlPuro := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
	  <infNFe Id="NFe` + chaveTeste + `">
	    <ide><mod>65</mod><serie>1</serie><nNF>123</nNF><dhEmi>2024-05-10T14:30:00-03:00</dhEmi></ide>
	    <emit><CNPJ>12345678000199</CNPJ></emit>
	    <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	  </infNFe>
	</NFe>`

	res, err := novoLeitorTeste().ParseXML("nota.xml", []byte(xmlPuro))
	require.NoError(t, err)
	assert.Equal(t, chaveTeste, res.Documento.ChaveAcesso)
	// sem dest os campos do destinatário ficam vazios
	assert.Empty(t, res.Documento.CpfCnpjDest)
	assert.Empty(t, res.Documento.UFDest)
}

func TestParseXML_ReducaoBCForaDoICMS20(t *testing.T) {
	xmlICMS90 := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
	  <infNFe Id="NFe` + chaveTeste + `">
	    <ide><mod>65</mod><serie>1</serie><nNF>123</nNF><dhEmi>2024-05-10T14:30:00-03:00</dhEmi></ide>
	    <emit><CNPJ>12345678000199</CNPJ></emit>
	    <det nItem="1">
	      <prod><cProd>1</cProd><vProd>10.00</vProd></prod>
	      <imposto><ICMS><ICMS90><CST>90</CST><pRedBC>12.50</pRedBC></ICMS90></ICMS></imposto>
	    </det>
	    <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	  </infNFe>
	</NFe>`

	res, err := novoLeitorTeste().ParseXML("nota.xml", []byte(xmlICMS90))
	require.NoError(t, err)
	require.Len(t, res.Linhas, 1)
	assert.Equal(t, "12.50", res.Linhas[0].ReducaoBC)
}

func TestParseXML_ReducaoBCAusenteFicaVazia(t *testing.T) {
	xmlSemRed := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
	  <infNFe Id="NFe` + chaveTeste + `">
	    <ide><mod>65</mod><serie>1</serie><nNF>123</nNF><dhEmi>2024-05-10T14:30:00-03:00</dhEmi></ide>
	    <emit><CNPJ>12345678000199</CNPJ></emit>
	    <det nItem="1">
	      <prod><cProd>1</cProd><vProd>10.00</vProd></prod>
	      <imposto><ICMS><ICMS00><CST>00</CST><vBC>10.00</vBC><pICMS>17.00</pICMS><vICMS>1.70</vICMS></ICMS00></ICMS></imposto>
	    </det>
	    <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	  </infNFe>
	</NFe>`

	res, err := novoLeitorTeste().ParseXML("nota.xml", []byte(xmlSemRed))
	require.NoError(t, err)
	require.Len(t, res.Linhas, 1)
	// vazio, nunca "0"
	assert.Equal(t, "", res.Linhas[0].ReducaoBC)
}

func TestParseXML_CSOSNQuandoSemCST(t *testing.T) {
	xmlSN := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
	  <infNFe Id="NFe` + chaveTeste + `">
	    <ide><mod>65</mod><serie>1</serie><nNF>123</nNF><dhEmi>2024-05-10T14:30:00-03:00</dhEmi></ide>
	    <emit><CNPJ>12345678000199</CNPJ></emit>
	    <det nItem="1">
	      <prod><cProd>1</cProd><vProd>10.00</vProd></prod>
	      <imposto><ICMS><ICMSSN102><orig>0</orig><CSOSN>102</CSOSN></ICMSSN102></ICMS></imposto>
	    </det>
	    <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	  </infNFe>
	</NFe>`

	res, err := novoLeitorTeste().ParseXML("nota.xml", []byte(xmlSN))
	require.NoError(t, err)
	require.Len(t, res.Linhas, 1)
	assert.Equal(t, "102", res.Linhas[0].ICMSCST)
}

func TestParseXML_DescricaoComNomeDeEvento(t *testing.T) {
	// só a raiz do documento decide a rota: uma autorização cuja descrição
	// de produto cita procEventoNFe continua sendo autorização
	xmlDesc := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
	  <infNFe Id="NFe` + chaveTeste + `">
	    <ide><mod>65</mod><serie>1</serie><nNF>123</nNF><dhEmi>2024-05-10T14:30:00-03:00</dhEmi></ide>
	    <emit><CNPJ>12345678000199</CNPJ></emit>
	    <det nItem="1">
	      <prod><cProd>1</cProd><xProd>Manual do layout procEventoNFe</xProd><vProd>10.00</vProd></prod>
	    </det>
	    <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	  </infNFe>
	</NFe>`

	res, err := novoLeitorTeste().ParseXML("nota.xml", []byte(xmlDesc))
	require.NoError(t, err)
	require.NotNil(t, res.Documento)
	assert.Equal(t, domain.SituacaoAutorizado, res.Documento.Situacao)
	require.Len(t, res.Linhas, 1)
}

func TestParseXML_Invalido(t *testing.T) {
	_, err := novoLeitorTeste().ParseXML("quebrado.xml", []byte("isto não é XML"))
	assert.Error(t, err)
}
