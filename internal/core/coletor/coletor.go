// Package coletor percorre um lote de arquivos (zip, com zips aninhados) e
// despacha cada entrada para o leitor. Falha de um arquivo nunca derruba o
// lote: vira uma linha de status "ERRO" e o processamento segue.
package coletor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"conferencia-service/internal/core/leitor"
	"conferencia-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Arquivo é um upload individual: nome e bytes.
type Arquivo struct {
	Nome  string
	Dados []byte
}

// Coletor enumera as entradas de um lote e coleta os registros extraídos.
type Coletor struct {
	leitor *leitor.Leitor
	log    *zap.Logger
}

// NovoColetor cria um coletor sobre o leitor dado.
func NovoColetor(l *leitor.Leitor, log *zap.Logger) *Coletor {
	return &Coletor{leitor: l, log: log}
}

// entrada é um arquivo individual já desempacotado do lote.
type entrada struct {
	nome  string
	dados []byte
}

// resultadoEntrada é o lote imutável devolvido por um worker para uma
// entrada; a mescla acontece em um único passo após a barreira do Wait.
type resultadoEntrada struct {
	documento *domain.DocumentoFiscal
	linhas    []domain.LinhaItem
	status    domain.StatusArquivo
}

// ColetarXMLZip processa um zip de XMLs de NFC-e, incluindo zips aninhados.
// Erros de arquivo individual viram status; corrupção do próprio zip é fatal
// para o upload.
func (c *Coletor) ColetarXMLZip(ctx context.Context, dados []byte) (*domain.ResultadoColeta, error) {
	entradas, limpar, err := c.expandirZip(dados, ".xml")
	if limpar != nil {
		defer limpar()
	}
	if err != nil {
		return nil, err
	}

	resultados := make([]resultadoEntrada, len(entradas))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, ent := range entradas {
		eg.Go(func() error {
			resultados[i] = c.processarEntrada(ent)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	coleta := &domain.ResultadoColeta{}
	for _, r := range resultados {
		if r.documento != nil {
			coleta.Documentos = append(coleta.Documentos, *r.documento)
		}
		coleta.Linhas = append(coleta.Linhas, r.linhas...)
		coleta.Status = append(coleta.Status, r.status)
	}
	return coleta, nil
}

func (c *Coletor) processarEntrada(ent entrada) resultadoEntrada {
	resultado, err := c.leitor.Parse(ent.nome, ent.dados)
	if err != nil {
		c.log.Warn("arquivo descartado do lote", zap.String("arquivo", ent.nome), zap.Error(err))
		return resultadoEntrada{status: domain.StatusArquivo{Arquivo: ent.nome, Progresso: "ERRO"}}
	}
	return resultadoEntrada{
		documento: resultado.Documento,
		linhas:    resultado.Linhas,
		status:    domain.StatusArquivo{Arquivo: ent.nome, Progresso: "OK"},
	}
}

// expandirZip enumera as entradas cujo nome contém o marcador de extensão
// (sem diferenciar maiúsculas), expandindo zips aninhados em uma área
// temporária que a função de limpeza remove em qualquer saída.
func (c *Coletor) expandirZip(dados []byte, extensao string) ([]entrada, func(), error) {
	zr, err := zip.NewReader(bytes.NewReader(dados), int64(len(dados)))
	if err != nil {
		return nil, nil, fmt.Errorf("arquivo zip inválido: %w", err)
	}

	var tmpdir string
	limpar := func() {
		if tmpdir != "" {
			os.RemoveAll(tmpdir)
		}
	}

	var entradas []entrada
	if err := c.percorrerZip(zr, extensao, &entradas, &tmpdir); err != nil {
		return nil, limpar, err
	}
	return entradas, limpar, nil
}

func (c *Coletor) percorrerZip(zr *zip.Reader, extensao string, entradas *[]entrada, tmpdir *string) error {
	for _, f := range zr.File {
		nome := strings.ToLower(f.Name)
		switch {
		case strings.Contains(nome, extensao):
			dados, err := lerEntradaZip(f)
			if err != nil {
				*entradas = append(*entradas, entrada{nome: f.Name})
				continue
			}
			*entradas = append(*entradas, entrada{nome: f.Name, dados: dados})
		case strings.Contains(nome, ".zip"):
			if err := c.expandirAninhado(f, extensao, entradas, tmpdir); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandirAninhado grava o zip interno na área temporária e percorre seu
// conteúdo. A área é criada sob demanda e removida pelo chamador.
func (c *Coletor) expandirAninhado(f *zip.File, extensao string, entradas *[]entrada, tmpdir *string) error {
	if *tmpdir == "" {
		dir, err := os.MkdirTemp("", "conferencia-zip-")
		if err != nil {
			return fmt.Errorf("erro ao criar área temporária: %w", err)
		}
		*tmpdir = dir
	}

	dados, err := lerEntradaZip(f)
	if err != nil {
		c.log.Warn("zip aninhado ilegível", zap.String("arquivo", f.Name), zap.Error(err))
		*entradas = append(*entradas, entrada{nome: f.Name})
		return nil
	}

	caminho := filepath.Join(*tmpdir, filepath.Base(f.Name))
	if err := os.WriteFile(caminho, dados, 0o600); err != nil {
		return fmt.Errorf("erro ao gravar zip aninhado: %w", err)
	}

	zrc, err := zip.OpenReader(caminho)
	if err != nil {
		c.log.Warn("zip aninhado corrompido", zap.String("arquivo", f.Name), zap.Error(err))
		*entradas = append(*entradas, entrada{nome: f.Name})
		return nil
	}
	defer zrc.Close()

	return c.percorrerZip(&zrc.Reader, extensao, entradas, tmpdir)
}

func lerEntradaZip(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ColetarNF3e processa uploads de texto extraído de NF3e, aceitando .txt
// avulsos ou um zip contendo vários.
func (c *Coletor) ColetarNF3e(ctx context.Context, arquivos []Arquivo) ([]domain.NotaNF3e, []domain.StatusArquivo, error) {
	var entradas []entrada
	for _, arq := range arquivos {
		if strings.Contains(strings.ToLower(arq.Nome), ".zip") {
			expandidas, limpar, err := c.expandirZip(arq.Dados, ".txt")
			if limpar != nil {
				defer limpar()
			}
			if err != nil {
				return nil, nil, err
			}
			entradas = append(entradas, expandidas...)
			continue
		}
		entradas = append(entradas, entrada{nome: arq.Nome, dados: arq.Dados})
	}

	notas := make([]*domain.NotaNF3e, len(entradas))
	status := make([]domain.StatusArquivo, len(entradas))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, ent := range entradas {
		eg.Go(func() error {
			resultado, err := c.leitor.ParseNF3e(ent.nome, ent.dados)
			if err != nil {
				status[i] = domain.StatusArquivo{Arquivo: ent.nome, Progresso: "ERRO"}
				return nil
			}
			notas[i] = resultado.NotaNF3e
			status[i] = domain.StatusArquivo{Arquivo: ent.nome, Progresso: "OK"}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var saida []domain.NotaNF3e
	for _, n := range notas {
		if n != nil {
			saida = append(saida, *n)
		}
	}
	return saida, status, nil
}
