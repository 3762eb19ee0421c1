package classifier

// Built-in tables for the English/Russian layout pair. Known-word tables
// are deliberately small and high-precision: an exact hit short-circuits
// every other signal, so only unambiguous words belong here.

var builtinEnglishWords = []string{
	"the", "and", "that", "have", "for", "not", "with", "you", "this",
	"but", "his", "from", "they", "say", "her", "she", "will", "one",
	"all", "would", "there", "their", "what", "out", "about", "who",
	"get", "which", "when", "make", "can", "like", "time", "just",
	"him", "know", "take", "people", "into", "year", "your", "good",
	"some", "could", "them", "see", "other", "than", "then", "now",
	"look", "only", "come", "its", "over", "think", "also", "back",
	"after", "use", "two", "how", "our", "work", "first", "well",
	"way", "even", "new", "want", "because", "any", "these", "give",
	"day", "most", "hello", "world", "yes", "please", "thanks",
	"thank", "sorry", "okay", "here", "where", "why", "today",
	"tomorrow", "morning", "night", "right", "left", "done", "stop",
	"start", "send", "read", "write", "open", "close", "name", "home",
}

var builtinRussianWords = []string{
	"и", "в", "не", "на", "я", "быть", "он", "с", "что", "а", "по",
	"это", "она", "этот", "к", "но", "они", "мы", "как", "из", "у",
	"который", "то", "за", "свой", "весь", "год", "от", "так", "о",
	"для", "ты", "же", "все", "тот", "мочь", "вы", "человек", "такой",
	"его", "сказать", "только", "или", "еще", "бы", "себя", "один",
	"уже", "до", "время", "если", "сам", "когда", "другой", "вот",
	"говорить", "наш", "мой", "знать", "стать", "при", "чтобы",
	"дело", "жизнь", "кто", "первый", "очень", "два", "день", "ее",
	"новый", "рука", "даже", "во", "со", "раз", "где", "там", "под",
	"можно", "ну", "какой", "после", "их", "работа", "без", "самый",
	"потом", "надо", "хотеть", "ли", "слово", "идти", "большой",
	"должен", "место", "иметь", "ничего", "привет", "спасибо",
	"пожалуйста", "да", "нет", "хорошо", "сейчас", "завтра", "сегодня",
	"утро", "вечер", "ночь", "дом", "имя", "письмо", "читать", "писать",
}

// Short words below the engine's minimum correctable length that are still
// worth correcting when they are an exact match.
var builtinEnglishShort = []string{
	"a", "i", "an", "is", "it", "to", "of", "in", "on", "at", "he",
	"we", "me", "my", "up", "so", "do", "go", "no", "if", "or", "as",
	"by", "be", "us", "am",
}

var builtinRussianShort = []string{
	"я", "в", "и", "с", "к", "у", "о", "а", "не", "на", "но", "мы",
	"ты", "вы", "он", "до", "по", "за", "же", "бы", "да", "из", "от",
	"со", "ну", "их", "её", "ни", "об",
}

// Impossible-in-English substrings that are common fragments of Russian
// words typed on a US layout ("ghbdtn" is "привет"). Minimum length 3 is
// enforced at registration; shorter fragments fire on real English.
var builtinImpossibleInEnglish = []string{
	"ghb",   // при
	"ghj",   // про
	"ghf",   // пра
	"ghtl",  // пред
	"xnj",   // что
	"ytn",   // нет
	"rjn",   // кот
	"crjk",  // скол
	"dct",   // все
	"ckjd",  // слов
	"hfpl",  // разд
	"jxtym", // очень
	"gjxt",  // поче
	"yfxfk", // начал
	"cgfc",  // спас
	"gjub",  // поги
}

// Impossible-in-Russian substrings that are common fragments of English
// words typed on a ЙЦУКЕН layout ("еру" is "the").
var builtinImpossibleInRussian = []string{
	"еру",   // the
	"фтв",   // and
	"нщг",   // you
	"цшер",  // with
	"ершы",  // this
	"ерфе",  // that
	"цщкл",  // work
	"руддщ", // hello
	"фищге", // about
	"цругт", // when
	"еруку", // there
	"ащк",   // for
	"пщщв",  // good
}

// Common-bigram weights. Start-of-word occurrences are scored with a bonus
// by the n-gram stage; the weights here are position-independent.
var builtinEnglishBigrams = map[string]float64{
	"th": 1.5, "he": 1.5, "in": 1.4, "er": 1.4, "an": 1.4, "re": 1.3,
	"on": 1.3, "at": 1.2, "en": 1.2, "nd": 1.2, "ti": 1.1, "es": 1.1,
	"or": 1.1, "te": 1.1, "of": 1.0, "ed": 1.0, "is": 1.0, "it": 1.0,
	"al": 1.0, "ar": 1.0, "st": 1.0, "to": 1.0, "nt": 1.0, "ng": 1.0,
	"se": 1.0, "ha": 1.0, "as": 1.0, "ou": 1.0, "io": 1.0, "le": 1.0,
	"ve": 1.0, "co": 1.0, "me": 1.0, "de": 1.0, "hi": 1.0, "ri": 1.0,
	"ro": 1.0, "ic": 1.0, "ne": 1.0, "ea": 1.0, "ra": 1.0, "ce": 1.0,
	"li": 1.0, "ch": 1.0, "ll": 1.0, "be": 1.0, "ma": 1.0, "si": 1.0,
	"om": 1.0, "ur": 1.0, "wh": 1.0, "sh": 1.0, "wo": 1.0, "lo": 1.0,
}

var builtinRussianBigrams = map[string]float64{
	"ст": 1.5, "но": 1.4, "то": 1.4, "на": 1.4, "ен": 1.3, "ов": 1.3,
	"ни": 1.3, "ра": 1.2, "во": 1.2, "ко": 1.2, "ал": 1.1, "ли": 1.1,
	"по": 1.1, "ре": 1.1, "ка": 1.0, "не": 1.0, "од": 1.0, "ро": 1.0,
	"ло": 1.0, "ер": 1.0, "ос": 1.0, "та": 1.0, "ет": 1.0, "ом": 1.0,
	"пр": 1.0, "ел": 1.0, "го": 1.0, "ть": 1.0, "ан": 1.0, "ат": 1.0,
	"ле": 1.0, "ны": 1.0, "ла": 1.0, "ия": 1.0, "ор": 1.0, "ес": 1.0,
	"ва": 1.0, "ис": 1.0, "те": 1.0, "ед": 1.0, "об": 1.0, "ем": 1.0,
	"ол": 1.0, "ри": 1.0, "де": 1.0, "ве": 1.0, "ми": 1.0, "да": 1.0,
	"ак": 1.0, "ас": 1.0, "ки": 1.0, "вс": 1.0, "че": 1.0, "ив": 1.0,
}
