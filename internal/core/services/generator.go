package services

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/conexa/sdkforge/internal/core/domain"
)

var nonNameChars = regexp.MustCompile(`[^a-z0-9-]`)
var dashRuns = regexp.MustCompile(`-+`)

// Generator synthesizes a TypeScript client SDK from a viable analysis. It
// is a pure function of its inputs: template-based, no external calls.
type Generator struct {
	logger *slog.Logger
}

func NewGenerator(logger *slog.Logger) *Generator {
	return &Generator{logger: logger}
}

func (g *Generator) Generate(analysis domain.AnalysisResult, provider string) (domain.GeneratedSDK, error) {
	name := normalizeProviderName(provider)
	if name == "" {
		return domain.GeneratedSDK{}, fmt.Errorf("empty provider name")
	}

	g.logger.Info("generating SDK", "provider", name, "provider_type", analysis.ProviderType)

	files := []domain.GeneratedFile{
		indexFile(),
		clientFile(analysis),
		configFile(),
		httpServiceFile(),
		authServiceFile(analysis.Authentication),
		interfacesFile(analysis),
		testFile(name),
		tsconfigFile(),
	}
	files = append(files, providerServiceFiles(analysis)...)

	return domain.GeneratedSDK{
		ProviderName: name,
		Files:        files,
		Manifest:     manifest(name, provider),
		Readme:       readme(provider, analysis),
	}, nil
}

func normalizeProviderName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	cleaned := nonNameChars.ReplaceAllString(lowered, "-")
	return strings.Trim(dashRuns.ReplaceAllString(cleaned, "-"), "-")
}

func serviceNames(providerType domain.ProviderType) []string {
	switch providerType {
	case domain.ProviderTypePayment:
		return []string{"Checkout", "Transaction"}
	case domain.ProviderTypeShipping:
		return []string{"Shipping", "Tracking"}
	case domain.ProviderTypeMessaging:
		return []string{"Campaign", "Message"}
	}
	return []string{"Resource"}
}

func indexFile() domain.GeneratedFile {
	return domain.GeneratedFile{
		Path: "src/index.ts",
		Type: domain.FileTypeTypeScript,
		Content: "export { ClientSDK } from './client-sdk';\n" +
			"export { setAppConfig, getAppConfig } from './config/app-config';\n" +
			"export { authenticate } from './services/auth.service';\n" +
			"export * from './interfaces';\n",
	}
}

func clientFile(analysis domain.AnalysisResult) domain.GeneratedFile {
	names := serviceNames(analysis.ProviderType)

	var imports, props, inits []string
	for _, n := range names {
		imports = append(imports, fmt.Sprintf("import { %sService } from './services/%s.service';", n, strings.ToLower(n)))
		props = append(props, fmt.Sprintf("  public readonly %s: %sService;", strings.ToLower(n), n))
		inits = append(inits, fmt.Sprintf("    this.%s = new %sService(token);", strings.ToLower(n), n))
	}

	content := strings.Join(imports, "\n") + "\n\nexport class ClientSDK {\n" +
		strings.Join(props, "\n") + "\n\n  constructor(token: string) {\n" +
		"    if (!token) {\n      throw new Error('Authentication token is required');\n    }\n" +
		strings.Join(inits, "\n") + "\n  }\n}\n"

	return domain.GeneratedFile{Path: "src/client-sdk.ts", Type: domain.FileTypeTypeScript, Content: content}
}

func configFile() domain.GeneratedFile {
	return domain.GeneratedFile{
		Path: "src/config/app-config.ts",
		Type: domain.FileTypeTypeScript,
		Content: "export interface AppConfig {\n  env: 'development' | 'staging' | 'production';\n  debug: boolean;\n  timeout?: number;\n  baseUrl?: string;\n}\n\n" +
			"let appConfig: AppConfig = { env: 'production', debug: false };\n\n" +
			"export function setAppConfig(config: Partial<AppConfig>): void {\n  appConfig = { ...appConfig, ...config };\n}\n\n" +
			"export function getAppConfig(): AppConfig {\n  return { ...appConfig };\n}\n",
	}
}

func httpServiceFile() domain.GeneratedFile {
	return domain.GeneratedFile{
		Path: "src/utils/http-service.ts",
		Type: domain.FileTypeTypeScript,
		Content: "import axios, { AxiosInstance } from 'axios';\nimport { getAppConfig } from '../config/app-config';\n\n" +
			"export class HttpService {\n  private client: AxiosInstance;\n\n  constructor(private token: string) {\n" +
			"    const config = getAppConfig();\n    this.client = axios.create({\n      baseURL: config.baseUrl,\n      timeout: config.timeout ?? 30000,\n    });\n  }\n\n" +
			"  async request<T>(method: string, path: string, data?: unknown): Promise<T> {\n" +
			"    const response = await this.client.request<T>({ method, url: path, data });\n    return response.data;\n  }\n}\n",
	}
}

func authServiceFile(auth domain.Authentication) domain.GeneratedFile {
	header := "Authorization"
	prefix := "Bearer "
	if auth.Type == domain.AuthTypeAPIKey {
		prefix = ""
		if auth.ParameterName != "" {
			header = auth.ParameterName
		}
	}

	content := fmt.Sprintf("export function authenticate(token: string): Record<string, string> {\n"+
		"  if (!token) {\n    throw new Error('Missing credentials');\n  }\n"+
		"  return { '%s': `%s${token}` };\n}\n", header, prefix)

	return domain.GeneratedFile{Path: "src/services/auth.service.ts", Type: domain.FileTypeTypeScript, Content: content}
}

func providerServiceFiles(analysis domain.AnalysisResult) []domain.GeneratedFile {
	var files []domain.GeneratedFile
	for _, name := range serviceNames(analysis.ProviderType) {
		var methods strings.Builder
		for _, ep := range analysis.Endpoints {
			fmt.Fprintf(&methods, "\n  async %s(payload?: unknown): Promise<unknown> {\n    return this.http.request('%s', '%s', payload);\n  }\n",
				camelCase(ep.Purpose), ep.Method, ep.Path)
		}

		content := fmt.Sprintf("import { HttpService } from '../utils/http-service';\n\n"+
			"export class %sService {\n  private http: HttpService;\n\n  constructor(token: string) {\n    this.http = new HttpService(token);\n  }\n%s}\n",
			name, methods.String())

		files = append(files, domain.GeneratedFile{
			Path:    fmt.Sprintf("src/services/%s.service.ts", strings.ToLower(name)),
			Type:    domain.FileTypeTypeScript,
			Content: content,
		})
	}
	return files
}

func interfacesFile(analysis domain.AnalysisResult) domain.GeneratedFile {
	var b strings.Builder
	b.WriteString("export interface ApiResponse<T> {\n  data: T;\n  status: number;\n}\n")
	for _, ep := range analysis.Endpoints {
		if len(ep.Parameters) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\nexport interface %sRequest {\n", pascalCase(ep.Purpose))
		for _, p := range ep.Parameters {
			optional := "?"
			if p.Required {
				optional = ""
			}
			fmt.Fprintf(&b, "  %s%s: %s;\n", p.Name, optional, tsType(p.Type))
		}
		b.WriteString("}\n")
	}

	return domain.GeneratedFile{Path: "src/interfaces/index.ts", Type: domain.FileTypeTypeScript, Content: b.String()}
}

func testFile(name string) domain.GeneratedFile {
	content := fmt.Sprintf("import { ClientSDK } from '../src/client-sdk';\n\n"+
		"describe('%s SDK', () => {\n  it('rejects a missing token', () => {\n"+
		"    expect(() => new ClientSDK('')).toThrow();\n  });\n});\n", name)
	return domain.GeneratedFile{Path: "tests/client-sdk.test.ts", Type: domain.FileTypeTypeScript, Content: content}
}

func tsconfigFile() domain.GeneratedFile {
	return domain.GeneratedFile{
		Path: "tsconfig.json",
		Type: domain.FileTypeJSON,
		Content: `{
  "compilerOptions": {
    "target": "ES2020",
    "module": "commonjs",
    "declaration": true,
    "outDir": "./dist",
    "strict": true,
    "esModuleInterop": true
  },
  "include": ["src/**/*"]
}
`,
	}
}

func manifest(name, displayName string) map[string]any {
	return map[string]any{
		"name":        fmt.Sprintf("@conexa/%s-sdk", name),
		"version":     "1.0.0",
		"description": fmt.Sprintf("Generated TypeScript SDK for %s", displayName),
		"main":        "dist/index.js",
		"types":       "dist/index.d.ts",
		"scripts": map[string]string{
			"build": "tsc",
			"test":  "jest",
		},
		"dependencies": map[string]string{
			"axios": "^1.6.0",
		},
		"devDependencies": map[string]string{
			"typescript":  "^5.3.0",
			"jest":        "^29.7.0",
			"@types/jest": "^29.5.0",
		},
	}
}

func readme(provider string, analysis domain.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s SDK\n\nGenerated TypeScript SDK for the %s %s API.\n\n", provider, provider, analysis.ProviderType)
	fmt.Fprintf(&b, "Analysis confidence: %d%%. Authentication: %s.\n\n## Usage\n\n", analysis.Confidence, analysis.Authentication.Type)
	b.WriteString("```typescript\nimport { ClientSDK } from './src';\n\nconst sdk = new ClientSDK('your-token');\n```\n\n## Endpoints\n\n")
	for _, ep := range analysis.Endpoints {
		fmt.Fprintf(&b, "- `%s %s`: %s\n", ep.Method, ep.Path, ep.Purpose)
	}
	return b.String()
}

func camelCase(s string) string {
	p := pascalCase(s)
	if p == "" {
		return "call"
	}
	r, size := utf8.DecodeRuneInString(p)
	return strings.ToLower(string(r)) + p[size:]
}

func pascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '/'
	})
	var b strings.Builder
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		b.WriteString(strings.ToUpper(string(r)))
		b.WriteString(p[size:])
	}
	return b.String()
}

func tsType(t string) string {
	switch strings.ToLower(t) {
	case "number", "integer", "float", "double":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		return "unknown[]"
	case "object":
		return "Record<string, unknown>"
	}
	return "string"
}
