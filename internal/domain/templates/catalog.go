package templates

// Exam types that carry built-in templates.
const (
	ExamUltrasoundAbd  = "ultrasound_abd"
	ExamEchocardiogram = "echocardiogram"
	ExamGestational    = "gestational"
	ExamRadiology      = "radiology"
	ExamCTScan         = "ct_scan"
	ExamOphthalmology  = "ophthalmology"
)

// CatalogEntry is one built-in template. ExamType "" means no exam type.
type CatalogEntry struct {
	Lang     string
	ExamType string
	Organ    string
	Title    string
	Text     string
}

func (e CatalogEntry) key() NaturalKey {
	return NaturalKey{Lang: e.Lang, ExamType: e.ExamType, Organ: e.Organ, Title: e.Title}
}

// DefaultCatalog returns the built-in normal-finding texts for canine and
// feline studies.
func DefaultCatalog() []CatalogEntry {
	var out []CatalogEntry

	normal := func(lang, organ, text string) {
		title := "Normal"
		out = append(out, CatalogEntry{Lang: lang, ExamType: ExamUltrasoundAbd, Organ: organ, Title: title, Text: text})
	}

	normal(LangPT, "Fígado", "Fígado com dimensões preservadas, contornos regulares e bordos finos. "+
		"Ecotextura homogênea e ecogenicidade habitual. Vasos hepáticos e portais de calibre normal.")
	normal(LangPT, "Vesícula biliar", "Vesícula biliar com repleção moderada, paredes finas e regulares. "+
		"Conteúdo anecogênico, sem evidência de cálculos ou lama biliar.")
	normal(LangPT, "Baço", "Baço com dimensões normais, contornos regulares. "+
		"Parênquima com ecotextura homogênea e ecogenicidade preservada.")
	normal(LangPT, "Rins", "Rins de topografia habitual, dimensões preservadas e contornos regulares. "+
		"Relação e definição corticomedular mantidas. Ausência de dilatação pélvica ou cálculos.")
	normal(LangPT, "Bexiga", "Bexiga com repleção adequada, paredes finas e regulares. "+
		"Conteúdo anecogênico, sem sedimento ou estruturas litiásicas.")
	normal(LangPT, "Estômago", "Estômago com paredes de espessura normal e estratificação preservada. "+
		"Conteúdo gasoso/alimentar habitual. Peristaltismo presente.")
	normal(LangPT, "Intestinos", "Alças intestinais com paredes de espessura normal e estratificação preservada. "+
		"Peristaltismo presente, sem sinais de obstrução.")
	normal(LangPT, "Pâncreas", "Pâncreas com dimensões e ecogenicidade preservadas. "+
		"Ausência de alterações no mesentério adjacente.")
	normal(LangPT, "Adrenais", "Adrenais com formato e dimensões preservados, ecogenicidade habitual.")
	normal(LangPT, "Linfonodos", "Linfonodos abdominais sem alterações ultrassonográficas dignas de nota.")
	normal(LangPT, "Próstata", "Próstata com dimensões normais para o porte, contornos regulares e parênquima homogêneo.")
	normal(LangPT, "Útero e ovários", "Útero não evidenciado, sem sinais de conteúdo intraluminal. "+
		"Ovários de dimensões preservadas.")

	normal(LangEN, "Liver", "Liver of normal size with smooth margins and sharp edges. "+
		"Homogeneous echotexture and normal echogenicity. Hepatic and portal vessels of normal calibre.")
	normal(LangEN, "Gallbladder", "Gallbladder moderately distended with thin, regular walls. "+
		"Anechoic content, no evidence of calculi or sludge.")
	normal(LangEN, "Spleen", "Spleen of normal size with smooth margins. "+
		"Parenchyma with homogeneous echotexture and preserved echogenicity.")
	normal(LangEN, "Kidneys", "Kidneys in normal position, of preserved size and smooth contour. "+
		"Corticomedullary distinction maintained. No pelvic dilation or calculi.")
	normal(LangEN, "Urinary bladder", "Urinary bladder adequately distended with thin, regular walls. "+
		"Anechoic content without sediment or calculi.")
	normal(LangEN, "Stomach", "Stomach wall of normal thickness with preserved layering. "+
		"Usual gas and food content. Peristalsis present.")
	normal(LangEN, "Intestines", "Intestinal loops with normal wall thickness and preserved layering. "+
		"Peristalsis present, no signs of obstruction.")
	normal(LangEN, "Pancreas", "Pancreas of preserved size and echogenicity. "+
		"No changes in the adjacent mesentery.")
	normal(LangEN, "Adrenal glands", "Adrenal glands of preserved shape and size, normal echogenicity.")
	normal(LangEN, "Lymph nodes", "Abdominal lymph nodes without notable sonographic changes.")
	normal(LangEN, "Prostate", "Prostate of normal size for body weight, smooth contour and homogeneous parenchyma.")
	normal(LangEN, "Uterus and ovaries", "Uterus not visualised, no intraluminal content. "+
		"Ovaries of preserved size.")

	conclusions := []struct {
		examType string
		pt, en   string
	}{
		{ExamUltrasoundAbd,
			"Exame ultrassonográfico abdominal dentro dos padrões de normalidade para a espécie.",
			"Abdominal ultrasound within normal limits for the species."},
		{ExamEchocardiogram,
			"Câmaras cardíacas com dimensões preservadas. Função sistólica e diastólica preservadas. " +
				"Ausência de refluxos valvares significativos.",
			"Cardiac chambers of preserved dimensions. Preserved systolic and diastolic function. " +
				"No significant valvular regurgitation."},
		{ExamGestational,
			"Gestação tópica com fetos viáveis, batimentos cardíacos e movimentação presentes.",
			"Viable pregnancy with fetal heartbeats and movement present."},
		{ExamRadiology,
			"Estudo radiográfico sem alterações dignas de nota.",
			"Radiographic study without notable changes."},
		{ExamCTScan,
			"Estudo tomográfico sem alterações dignas de nota.",
			"CT study without notable changes."},
		{ExamOphthalmology,
			"Exame oftalmológico sem alterações. Reflexos pupilares preservados.",
			"Ophthalmic examination without changes. Pupillary reflexes preserved."},
	}
	for _, c := range conclusions {
		out = append(out,
			CatalogEntry{Lang: LangPT, ExamType: c.examType, Title: "Conclusão", Text: c.pt},
			CatalogEntry{Lang: LangEN, ExamType: c.examType, Title: "Conclusion", Text: c.en},
		)
	}
	return out
}
