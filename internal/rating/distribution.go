package rating

import "name-smart-go/internal/model"

type distribution struct {
	mean float64
	std  float64
}

// distributions 是语料中每个特征第一极得分的均值与标准差，按人群区分。
var distributions = map[model.Population]map[string]distribution{
	model.Boy: {
		"A Good Name": {0.7095883488672485, 0.054284520974145094},
		"Masculine":   {0.8516815245926722, 0.03845062574854393},
		"Classic":     {0.630654396955258, 0.052457795101303835},
		"Mature":      {0.567208311919214, 0.054512310816690134},
		"Formal":      {0.5878436236856359, 0.05377349318559044},
		"Upper Class": {0.5557353909407857, 0.05536344066890343},
		"Urban":       {0.4335645409970402, 0.05745842050395597},
		"Wholesome":   {0.6492459266873176, 0.05599049318087365},
		"Strong":      {0.748571611128859, 0.05001480430129141},
		"Refined":     {0.5994107760476723, 0.05602597219281701},
		"Strange":     {0.657932048949204, 0.05161597432755281},
		"Simple":      {0.5591581125942792, 0.05486902478496766},
		"Serious":     {0.5917832289250339, 0.0548356636707774},
		"Nerdy":       {0.6057190560193412, 0.05594803894183484},
	},
	model.Girl: {
		"A Good Name": {0.731890183328819, 0.04809467132134483},
		"Masculine":   {0.10702889482353015, 0.03257073884564129},
		"Classic":     {0.5978575729036324, 0.04897800255139655},
		"Mature":      {0.4487827104109957, 0.05020089624131008},
		"Formal":      {0.5857440449312562, 0.0492942112919231},
		"Upper Class": {0.5987515965475849, 0.050280000384560944},
		"Urban":       {0.3562172680866805, 0.0509335128343213},
		"Wholesome":   {0.6976071998383009, 0.04936526123825189},
		"Strong":      {0.5322117720925625, 0.05125233340190662},
		"Refined":     {0.7182022766661107, 0.04819943112862181},
		"Strange":     {0.6571660581508821, 0.047317459374429306},
		"Simple":      {0.5289386882722029, 0.04995100442544437},
		"Serious":     {0.6011593623270693, 0.05052240978824469},
		"Nerdy":       {0.59568979456679, 0.05126756643368472},
	},
}
