// package conferencia/service.go
package conferencia

import (
	"context"
	"fmt"

	"conferencia-service/internal/core/agregador"
	"conferencia-service/internal/core/coletor"
	"conferencia-service/internal/core/conciliador"
	"conferencia-service/internal/core/leitor"
	"conferencia-service/internal/core/planilha"
	"conferencia-service/internal/domain"

	"go.uber.org/zap"
)

// Service defines the interface for fiscal document reconciliation services.
type Service interface {
	ProcessarXMLNFCe(ctx context.Context, arquivoZip []byte) ([]byte, *domain.Contagens, error)
	ProcessarNF3e(ctx context.Context, arquivos []coletor.Arquivo) ([]byte, int, error)
	ProcessarNatReceita(arquivoTxt []byte, cstPisFiltro []string) ([]byte, int, error)
}

type service struct {
	coletor *coletor.Coletor
	log     *zap.Logger
}

// NewService creates a new reconciliation service.
func NewService(log *zap.Logger) Service {
	return &service{
		coletor: coletor.NovoColetor(leitor.NovoLeitor(log), log),
		log:     log,
	}
}

// ProcessarXMLNFCe executa o fluxo completo da conferência de NFC-e:
// coleta do zip, conciliação, resumos e planilha.
func (s *service) ProcessarXMLNFCe(ctx context.Context, arquivoZip []byte) ([]byte, *domain.Contagens, error) {
	coleta, err := s.coletor.ColetarXMLZip(ctx, arquivoZip)
	if err != nil {
		return nil, nil, fmt.Errorf("falha ao processar arquivo zip: %w", err)
	}

	conc := conciliador.Conciliar(coleta)
	preencherContagensArquivos(&conc.Contagens, coleta.Status)
	for _, par := range conc.JuncoesAmbiguas {
		s.log.Warn("número e série apontam para mais de uma chave na junção de linhas",
			zap.String("numero_serie", par))
	}

	resumos := agregador.Agregar(conc.Linhas)

	xlsx, err := planilha.GerarNFCe(conc, resumos, coleta.Status)
	if err != nil {
		return nil, nil, fmt.Errorf("falha ao gerar planilha: %w", err)
	}

	s.log.Info("conferência NFC-e concluída",
		zap.Int("arquivos_lidos", conc.Contagens.ArquivosLidos),
		zap.Int("arquivos_com_erro", conc.Contagens.ArquivosComErro),
		zap.Int("documentos_retidos", conc.Contagens.DocumentosRetidos),
		zap.Int("quebras_sequencia", len(conc.Quebras)),
	)
	return xlsx, &conc.Contagens, nil
}

// ProcessarNF3e extrai os dados das contas de energia e devolve a planilha
// junto com a quantidade de notas extraídas.
func (s *service) ProcessarNF3e(ctx context.Context, arquivos []coletor.Arquivo) ([]byte, int, error) {
	notas, status, err := s.coletor.ColetarNF3e(ctx, arquivos)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao processar arquivos NF3e: %w", err)
	}

	xlsx, err := planilha.GerarNF3e(notas, status)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao gerar planilha: %w", err)
	}
	return xlsx, len(notas), nil
}

// ProcessarNatReceita agrupa o extrato texto por natureza da receita,
// aplicando o filtro opcional de CST de PIS, e devolve a planilha junto com
// a quantidade de linhas ignoradas por valor inválido.
func (s *service) ProcessarNatReceita(arquivoTxt []byte, cstPisFiltro []string) ([]byte, int, error) {
	linhas, ignoradas, err := leitor.ParseRT(arquivoTxt)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao ler extrato: %w", err)
	}
	if ignoradas > 0 {
		s.log.Warn("linhas ignoradas no extrato por valor inválido", zap.Int("ignoradas", ignoradas))
	}

	res := agregador.AgruparNatReceita(linhas, cstPisFiltro)

	xlsx, err := planilha.GerarNatReceita(res)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao gerar planilha: %w", err)
	}
	return xlsx, ignoradas, nil
}

func preencherContagensArquivos(c *domain.Contagens, status []domain.StatusArquivo) {
	for _, s := range status {
		if s.Progresso == "ERRO" {
			c.ArquivosComErro++
		} else {
			c.ArquivosLidos++
		}
	}
}
