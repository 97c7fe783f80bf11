package scan

import "fmt"

const documentationPrompt = `You are an expert software engineer and technical writer. Analyze the following code and generate comprehensive documentation.

Code:
%s

Provide:
1. A high-level overview of the code's purpose and functionality
2. Detailed description of key components, classes, and functions
3. Explanation of important algorithms, data structures, or patterns used
4. Any security considerations or potential vulnerabilities
5. Dependencies and integration points with other systems

Format your response in clear, well-structured markdown. Use appropriate headings, code blocks, and bullet points for readability. Focus on making the documentation useful for both developers and security engineers.

Documentation:`

const threatModelPrompt = `You are an expert application security penetration tester and threat modeler. Based on the following documentation for a %s codebase, create a detailed application security threat model from an attacker's perspective.

Documentation:
%s

Cover, based only on functionality evident in the documentation:
1. Application overview: functionality, roles, auth mechanisms, data flows, integrations
2. Attack surface: input points, session handling, state transitions, storage, external systems
3. Attack scenarios: exploited functionality, step-by-step path, required position, prerequisites, impact
4. Security weaknesses: exploitable behaviors, bypasses, missing validation, violated trust assumptions
5. Impact assessment: exploitability, business impact, complexity, detection likelihood

Format your response in clear, well-structured markdown. Only identify attack scenarios with clear evidence in the documentation.

Application Security Threat Model:`

func buildDocumentationPrompt(code string) string {
	return fmt.Sprintf(documentationPrompt, code)
}

func buildThreatModelPrompt(doc, lang string) string {
	return fmt.Sprintf(threatModelPrompt, lang, doc)
}
