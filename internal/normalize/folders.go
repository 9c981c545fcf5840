package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

// foldCaser performs Unicode case folding rather than strings.ToLower, so
// scripts whose casing rules vary by locale (Turkish dotted/dotless I, the
// German ß, Greek final sigma) still match the lexicon below.
var foldCaser = cases.Fold()

// sentFolderWords and draftsFolderWords cover the languages named in spec §6:
// English, German, French, Spanish, Italian, Dutch, Portuguese, Russian,
// Chinese, Japanese, Korean, Arabic, Hebrew, Polish, Czech, Slovak, Hungarian,
// Turkish, Greek, Finnish, Swedish, Norwegian, Danish, Romanian, Bulgarian,
// Croatian, Slovenian, Latvian, Lithuanian, Estonian, Maltese, Irish.
var sentFolderWords = []string{
	"sent", "sent items", "sent mail",
	"gesendet", "gesendete objekte",
	"envoyés", "envoyes", "éléments envoyés",
	"enviados", "elementos enviados",
	"inviati", "posta inviata",
	"verzonden", "verzonden items",
	"enviadas", "itens enviados",
	"отправленные",
	"已发送", "寄件备份", "寄件匣",
	"送信済み", "送信済みアイテム",
	"보낸편지함", "보낸 편지함",
	"المرسلة", "العناصر المرسلة",
	"נשלח", "פריטים שנשלחו",
	"wysłane", "elementy wysłane",
	"odeslané", "odeslaná pošta",
	"odoslané",
	"elküldött elemek",
	"gönderilmiş öğeler", "gönderilenler",
	"απεσταλμένα",
	"lähetetyt",
	"skickat",
	"sendt",
	"trimise", "elemente trimise",
	"изпратени",
	"poslano", "poslani",
	"poslano", // slovenian overlaps
	"nosūtītie",
	"išsiųsti",
	"saadetud",
	"mibgħuta",
	"seolta",
}

var draftsFolderWords = []string{
	"draft", "drafts",
	"entwurf", "entwürfe",
	"brouillon", "brouillons",
	"borrador", "borradores",
	"bozza", "bozze",
	"concept", "concepten", "kladblok",
	"rascunho", "rascunhos",
	"черновик", "черновики",
	"草稿",
	"下書き",
	"임시보관함", "임시 보관함",
	"مسودة", "مسودات",
	"טיוטה", "טיוטות",
	"wersje robocze", "szkice",
	"koncept", "koncepty",
	"piszkozat", "piszkozatok",
	"taslak", "taslaklar",
	"πρόχειρα",
	"luonnokset",
	"utkast",
	"kladde",
	"ciorne",
	"чернови",
	"nacrt", "nacrti",
	"osnutek",
	"melnraksti",
	"juodraščiai",
	"mustandid",
	"abbozz",
	"dréacht",
}

// IsSentFolder reports whether folder matches the sent-folder lexicon
// (case-insensitive substring match per spec §6).
func IsSentFolder(folder string) bool {
	return matchesAny(folder, sentFolderWords)
}

// IsDraftsFolder reports whether folder matches the drafts-folder lexicon.
func IsDraftsFolder(folder string) bool {
	return matchesAny(folder, draftsFolderWords)
}

func matchesAny(folder string, words []string) bool {
	f := foldCaser.String(folder)
	for _, w := range words {
		if strings.Contains(f, foldCaser.String(w)) {
			return true
		}
	}
	return false
}
