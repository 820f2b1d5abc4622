package treatment

import "strings"

const notepadDivider = "================================================================================="

// RenderNotepad builds the standardized dossier TXT from the treatment
// notes. Unfilled fields keep their line with an empty value; optional
// blocks are omitted entirely when empty.
func RenderNotepad(notas map[string]string) string {
	g := func(key string) string {
		return strings.TrimSpace(notas[key])
	}

	var lines []string
	add := func(line string) { lines = append(lines, line) }

	add("DEPURAÇÃO PARCELAMENTO PASSÍVEL DE RESCISÃO")
	add(notepadDivider)
	add("PLANO: " + g("PLANO"))
	add("CNPJ/CEI: " + g("CNPJ_CEI"))
	add("RAZÃO SOCIAL: " + g("RAZAO_SOCIAL"))
	add(notepadDivider)
	add("E50H – PARCELAS EM ATRASO")
	add("Parcela Valor Parcela Atualizado Data Vencimento")
	if atrasos := g("E50H_PARCELAS_ATRASO"); atrasos != "" {
		add(atrasos)
	}
	add(notepadDivider)
	add("E544 – DETALHES DO PARCELAMENTO")
	add("TIPO: " + g("E544_TIPO"))
	add("DATA DE SOLICITAÇÃO: " + g("E544_DATA_SOLICITACAO"))
	add("PERÍODO: " + g("E544_PERIODO"))
	add("CNPJ:")
	if cnpjs := g("E544_CNPJS"); cnpjs != "" {
		add(cnpjs)
	}
	add(notepadDivider)
	add("E398 – CONSULTA BASES MATRIZ E FILIAIS")
	bases := g("E398_BASES")
	if bases != "" && !strings.Contains(bases, "\n") {
		add("BASES: " + bases)
	} else {
		add("BASES: ")
		if bases != "" {
			add(bases)
		}
	}
	add(notepadDivider)
	add("E555 – ANÁLISE DE OUTRO PLANO EM DIA")
	if analise := g("E555_ANALISE_OUTRO_PLANO"); analise != "" {
		add(analise)
	}
	add(notepadDivider)
	add("E213 – APROVEITAMENTO DE RECOLHIMENTOS")
	if aproveitamento := g("E213_APROVEITAMENTO_RECOLHIMENTOS"); aproveitamento != "" {
		add(aproveitamento)
	}
	add(notepadDivider)
	add("E206 – SUBSTITUIÇÃO – CONFISSÃO x NOTIFICAÇÃO FISCAL")
	if substituicao := g("E206_SUBSTITUICAO_CONFISSAO_NOTIFICACAO"); substituicao != "" {
		add(substituicao)
	}
	add(notepadDivider)
	add("PESQUISA DE OCORRÊNCIAS 21")
	if oc21 := g("OC21_RESULTADOS"); oc21 != "" {
		add(oc21)
		if exclusao := g("OC21_EXCLUSAO_GUIAS"); exclusao != "" {
			add(exclusao)
		}
	}
	if tabela := g("OC21_TABELA"); tabela != "" {
		add(tabela)
	}
	add(notepadDivider)
	add("PESQUISA DE GUIAS NO SFG")
	if pesquisa := g("PESQUISA_GUIAS_SFG"); pesquisa != "" {
		add(pesquisa)
	}
	add(notepadDivider)
	add("LANÇAMENTO DE GUIAS NO FGE")
	if lancamento := g("LANCAMENTO_GUIAS_FGE"); lancamento != "" {
		add(lancamento)
	}
	add(notepadDivider)
	add("PESQUISA DE DUPLICIDADE")
	if duplicidade := g("PESQUISA_DUPLICIDADE"); duplicidade != "" {
		add(duplicidade)
	}
	add(notepadDivider)
	add("E554 - RESCISÃO")
	add("DATA DA RESCISÃO NO FGE: " + g("E554_DATA_RESCISAO_FGE"))
	add("DATA DA COMUNICAÇÃO: " + g("E554_DATA_COMUNICACAO"))
	add("MÉTODO DE COMUNICAÇÃO (CNS/EMAIL): " + g("E554_METODO_COMUNICACAO"))
	add("NSU OU ENDEREÇO DE EMAIL: " + g("E554_NSU_OU_EMAIL"))
	add("NOME DO DOSSIÊ: " + g("E554_NOME_DOSSIE"))
	add("DATA DE FINALIZAÇÃO NO SIREP: " + g("E554_DATA_FINALIZACAO_SIREP"))
	add(notepadDivider)
	add("OUTRAS OBSERVAÇÕES (que julgar necessárias)")
	if obs := strings.Trim(g("OUTRAS_OBSERVACOES"), "\n"); obs != "" {
		add(obs)
	}

	return strings.Join(lines, "\n") + "\n"
}
