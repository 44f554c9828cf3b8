package columns

// Hours-export headers used when auto-detection finds nothing.
const (
	HoursCodeHeader  = "Code d'étudiant"
	HoursFirstHeader = "Prénom"
	HoursLastHeader  = "Nom"
	HoursEmailHeader = "Adresse e-mail"
	HoursHoursHeader = "Temps passé dans le cours (en heures)"
)

// IngestRules maps extraction workbooks onto NormalizedRecord fields. Email
// resolves first so that identity columns are never claimed by looser rules.
var IngestRules = []Binding{
	{Field: FieldEmail, Rule: Rule{{"email"}, {"e", "mail"}, {"courriel"}, {"mail"}}},
	{Field: FieldStudentID, Rule: Rule{
		{"student", "id"}, {"studentid"}, {"id", "etudiant"}, {"code", "etudiant"}, {"username"}, {"id"},
	}},
	{Field: FieldFirstName, Rule: Rule{{"first", "name"}, {"firstname"}, {"prenom"}}},
	{Field: FieldLastName, Rule: Rule{{"last", "name"}, {"lastname"}, {"nom"}}},
	{Field: FieldHours, Rule: Rule{
		{"hours", "in", "course"}, {"hoursincourse"}, {"hours"}, {"time", "spent"},
		{"temps", "passe"}, {"temps"}, {"heures"},
	}},
	{Field: FieldGrade, Rule: Rule{
		{"overall", "grade"}, {"overallgrade"}, {"final", "grade"}, {"grade", "finale"}, {"grade"}, {"note"},
	}},
	{Field: FieldVerdict, Rule: Rule{{"verdict"}, {"outcome"}, {"result"}, {"resultat"}, {"pass"}, {"fail"}}},
}

// HoursRules resolves the hours export in the order code, first, last, email,
// hours so the hours column can never collide with an identity column.
var HoursRules = []Binding{
	{Field: FieldCode, Rule: Rule{{"code", "etudiant"}, {"code", "student"}}, Default: HoursCodeHeader},
	{Field: FieldFirstName, Rule: Rule{{"prenom"}, {"first"}}, Default: HoursFirstHeader},
	{Field: FieldLastName, Rule: Rule{{"nom"}, {"last"}}, Default: HoursLastHeader},
	{Field: FieldEmail, Rule: Rule{
		{"adresse", "email"}, {"adresse", "e", "mail"}, {"email"}, {"e", "mail"},
	}, Default: HoursEmailHeader},
	{Field: FieldHours, Rule: Rule{
		{"temps", "heure"}, {"temps", "heures"}, {"hours"}, {"time", "spent"},
	}, Default: HoursHoursHeader},
}

// HoursRequired lists the hours-export fields the merge cannot run without.
var HoursRequired = []Field{FieldCode, FieldFirstName, FieldLastName, FieldEmail, FieldHours}

// DirectoryRules maps the student directory workbook.
var DirectoryRules = []Binding{
	{Field: FieldStudentID, Rule: Rule{{"student", "id"}, {"studentid"}, {"id", "etudiant"}, {"id"}}},
	{Field: FieldEmail, Rule: Rule{{"email"}, {"e", "mail"}, {"mail"}}},
	{Field: FieldCampus, Rule: Rule{{"campus"}}},
	{Field: FieldProgram, Rule: Rule{{"program"}, {"programme"}}},
	{Field: FieldPromotion, Rule: Rule{{"promotion"}, {"cohort"}}},
	{Field: FieldLicense, Rule: Rule{{"chatgpt"}, {"chat", "gpt"}, {"license"}, {"licence"}}},
}

// CertifiedRules maps the certification list.
var CertifiedRules = []Binding{
	{Field: FieldEmail, Rule: Rule{{"email"}, {"e", "mail"}, {"mail"}}},
}
