// Package leitor transforma um arquivo bruto (XML de NFC-e, texto extraído
// de NF3e ou extrato posicional) em registros canônicos. Cada função de
// parse é pura: recebe os bytes de um arquivo e devolve zero ou mais
// registros, sem estado compartilhado.
package leitor

import (
	"fmt"
	"path/filepath"
	"strings"

	"conferencia-service/internal/domain"

	"go.uber.org/zap"
)

// TipoArquivo identifica a variante de parser a ser aplicada.
type TipoArquivo int

// Variantes de arquivo reconhecidas.
const (
	TipoDesconhecido TipoArquivo = iota
	TipoXMLNFe
	TipoTextoNF3e
	TipoTextoRT
)

// ResultadoParse é a saída do contrato de parse: um evento de documento
// (autorização ou cancelamento) e suas linhas, conforme a variante.
type ResultadoParse struct {
	Documento *domain.DocumentoFiscal
	Linhas    []domain.LinhaItem
	NotaNF3e  *domain.NotaNF3e
	LinhasRT  []domain.LinhaRT
}

// FuncParse é o contrato comum a todas as variantes.
type FuncParse func(nome string, dados []byte) (*ResultadoParse, error)

// Leitor despacha cada arquivo para a variante correta de parse.
type Leitor struct {
	log       *zap.Logger
	variantes map[TipoArquivo]FuncParse
}

// NovoLeitor cria um leitor com a tabela de despacho por tipo de arquivo.
func NovoLeitor(log *zap.Logger) *Leitor {
	l := &Leitor{log: log}
	l.variantes = map[TipoArquivo]FuncParse{
		TipoXMLNFe:    l.ParseXML,
		TipoTextoNF3e: l.ParseNF3e,
		TipoTextoRT:   l.parseRTVariant,
	}
	return l
}

// DetectarTipo identifica a variante pelo nome do arquivo e, quando o nome
// não basta, pelo conteúdo.
func DetectarTipo(nome string, dados []byte) TipoArquivo {
	switch strings.ToLower(filepath.Ext(nome)) {
	case ".xml":
		return TipoXMLNFe
	case ".txt":
		if strings.Contains(string(dados), "NOTA FISCAL") {
			return TipoTextoNF3e
		}
		return TipoTextoRT
	}
	if strings.Contains(string(dados), "<") && strings.Contains(string(dados), "infNFe") {
		return TipoXMLNFe
	}
	return TipoDesconhecido
}

// Parse aplica a variante detectada ao arquivo.
func (l *Leitor) Parse(nome string, dados []byte) (*ResultadoParse, error) {
	tipo := DetectarTipo(nome, dados)
	fn, ok := l.variantes[tipo]
	if !ok {
		return nil, errTipoDesconhecido(nome)
	}
	return fn(nome, dados)
}

func errTipoDesconhecido(nome string) error {
	return fmt.Errorf("tipo de arquivo não reconhecido: %s", nome)
}

func (l *Leitor) parseRTVariant(nome string, dados []byte) (*ResultadoParse, error) {
	linhas, _, err := ParseRT(dados)
	if err != nil {
		return nil, err
	}
	return &ResultadoParse{LinhasRT: linhas}, nil
}
