package registry

// Built-in tables tracking the CrewAI-Studio environment. The external list
// mirrors the studio's requirements manifest; versions are the pins shipped
// there. Keep both lists sorted by theme so diffs against the manifest stay
// reviewable.

// stdlibModules lists Python standard-library modules that are always
// importable. Dotted entries cover commonly imported submodules whose base
// module is also listed.
var stdlibModules = []string{
	// Core
	"typing", "types", "sys", "os", "io", "builtins",
	// Text processing
	"re", "string", "textwrap", "unicodedata",
	// Data structures
	"collections", "array", "heapq", "bisect", "weakref",
	"copy", "pprint", "reprlib", "enum",
	// Numbers and math
	"math", "cmath", "decimal", "fractions", "random", "statistics",
	// Functional programming
	"itertools", "functools", "operator",
	// Files and directories
	"pathlib", "os.path", "fileinput", "stat", "filecmp",
	"tempfile", "glob", "fnmatch", "shutil",
	// Persistence
	"pickle", "shelve", "dbm", "sqlite3",
	// Compression
	"zlib", "gzip", "bz2", "lzma", "zipfile", "tarfile",
	// File formats
	"csv", "configparser", "json", "xml", "html",
	// Networking
	"urllib", "urllib.request", "urllib.parse", "urllib.error",
	"http", "http.client", "http.server", "socketserver",
	"socket", "ssl",
	// Email
	"email", "smtplib", "poplib", "imaplib",
	// Date and time
	"datetime", "time", "calendar", "zoneinfo",
	// Concurrency
	"threading", "multiprocessing", "concurrent", "subprocess",
	"queue", "asyncio", "contextvars",
	// Cryptography
	"hashlib", "hmac", "secrets",
	// OS interfaces
	"getpass", "platform", "errno", "ctypes",
	// Debugging and runtime
	"logging", "warnings", "traceback", "dataclasses", "abc",
	"atexit", "gc", "inspect", "importlib",
	// Code parsing
	"ast", "symtable", "token", "keyword", "tokenize", "dis",
}

// externalLibraries maps supported external library names to the versions
// pinned in the CrewAI-Studio requirements manifest. An empty version means
// the manifest does not pin one.
var externalLibraries = map[string]string{
	// Core CrewAI
	"accelerate":   "1.12.0",
	"crewai":       "1.5.0",
	"crewai-tools": "1.5.0",

	// AI & LLM SDKs
	"anthropic": "0.75.0",
	"openai":    "2.8.1",
	"groq":      "0.36.0",
	"litellm":   "1.80.5",
	"ollama":    "0.6.1",

	// LangChain ecosystem
	"langchain":                "1.1.0",
	"langchain-community":      "0.4.1",
	"langchain-core":           "1.1.0",
	"langchain-groq":           "1.1.0",
	"langchain-ollama":         "1.0.0",
	"langchain-openai":         "1.1.0",
	"langchain-anthropic":      "1.1.0",
	"langchain-text-splitters": "1.0.0",

	// Data processing
	"pandas":     "2.2.3",
	"numpy":      "2.1.3",
	"scipy":      "1.14.1",
	"openpyxl":   "3.1.5",
	"xlsxwriter": "3.2.0",

	// Web & HTTP
	"requests":       "2.32.3",
	"httpx":          "0.28.1",
	"aiohttp":        "3.11.10",
	"beautifulsoup4": "4.12.3",
	"lxml":           "5.3.0",

	// Documents
	"pypdf":       "5.1.0",
	"pdfplumber":  "0.11.4",
	"python-docx": "1.1.2",
	"python-pptx": "1.0.2",
	"docling":     "2.14.0",

	// Databases & vector stores
	"chromadb":        "0.5.23",
	"lancedb":         "0.17.0",
	"sqlalchemy":      "2.0.36",
	"psycopg2-binary": "2.9.10",

	// Validation & config
	"pydantic":          "2.10.3",
	"pydantic-settings": "2.6.1",
	"pyyaml":            "6.0.2",
	"python-dotenv":     "1.0.1",

	// Search
	"duckduckgo-search": "6.4.1",

	// Media
	"pillow":        "11.0.0",
	"opencv-python": "4.10.0.84",
	"pytube":        "15.0.0",

	// Cloud & infra
	"boto3":      "1.35.76",
	"botocore":   "1.35.76",
	"docker":     "7.1.0",
	"kubernetes": "31.0.0",

	// Misc utilities
	"python-dateutil": "2.9.0",
	"tenacity":        "9.0.0",
	"tqdm":            "4.67.1",
}

// libraryCategories groups supported libraries under coarse category labels.
// Used for logging and guidance selection; membership is not exhaustive.
var libraryCategories = map[string][]string{
	"crewai": {"crewai", "crewai-tools", "accelerate"},
	"ai_llm": {
		"anthropic", "openai", "groq", "litellm", "ollama",
		"langchain", "langchain-community", "langchain-core",
		"langchain-openai", "langchain-anthropic",
	},
	"data_processing": {"pandas", "numpy", "scipy", "openpyxl", "xlsxwriter"},
	"web_http":        {"requests", "httpx", "aiohttp", "beautifulsoup4", "lxml"},
	"documents":       {"pypdf", "pdfplumber", "python-docx", "python-pptx", "docling"},
	"databases":       {"chromadb", "lancedb", "sqlalchemy", "psycopg2-binary"},
	"validation":      {"pydantic", "pydantic-settings", "pyyaml", "python-dotenv"},
	"search":          {"duckduckgo-search"},
	"media":           {"pillow", "opencv-python", "pytube"},
	"cloud":           {"boto3", "botocore", "docker", "kubernetes"},
}

// alternativesMap suggests replacements for well-known unsupported libraries.
// Keys are lowercase. Names matching the http/json/csv substring heuristics in
// [Registry.Alternatives] never reach this table.
var alternativesMap = map[string][]string{
	"urllib2":  {"urllib.request (stdlib)", "requests"},
	"urllib3":  {"urllib.request (stdlib)", "httpx"},
	"polars":   {"pandas"},
	"arrow":    {"datetime (stdlib)", "python-dateutil"},
	"pendulum": {"datetime (stdlib)", "python-dateutil"},
	"scrapy":   {"beautifulsoup4", "lxml"},
	"pymongo":  {"Use a REST API with requests"},
	"redis":    {"Use a REST API with requests"},
}
